package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collegeevents/middlewares"
	"collegeevents/services"
	"collegeevents/utils"
)

func respondSession(c *gin.Context, status int, message string, s services.Session) {
	utils.OK(c, status, message, gin.H{"token": s.Token, "user": s.User})
}

func (h *handlers) studentSignup(c *gin.Context) {
	var in services.SignupInput
	if !bindJSON(c, &in) {
		return
	}
	s, err := h.Auth.Signup(c.Request.Context(), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	respondSession(c, http.StatusCreated, "Account created successfully!", s)
}

func (h *handlers) studentSignin(c *gin.Context) {
	var in services.CredentialsInput
	if !bindJSON(c, &in) {
		return
	}
	s, err := h.Auth.Signin(c.Request.Context(), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	respondSession(c, http.StatusOK, "Login successful!", s)
}

// adminClaim 是 multipart：欄位 + 學生證圖檔 idCard
func (h *handlers) adminClaim(c *gin.Context) {
	in := services.ClaimInput{
		ClubCategory: c.PostForm("clubCategory"),
		ClubName:     c.PostForm("clubName"),
		Email:        c.PostForm("email"),
		Password:     c.PostForm("password"),
	}
	// 沒附檔就留 nil，讓 service 回欄位缺漏
	if f, err := c.FormFile("idCard"); err == nil {
		in.IDCard = f
	}
	s, err := h.Auth.ClaimClub(c.Request.Context(), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	respondSession(c, http.StatusCreated, "Admin access granted for "+clubOf(s)+"!", s)
}

func (h *handlers) adminRelogin(c *gin.Context) {
	var in services.CredentialsInput
	if !bindJSON(c, &in) {
		return
	}
	s, err := h.Auth.AdminRelogin(c.Request.Context(), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	respondSession(c, http.StatusOK, "Welcome back, "+clubOf(s)+" Admin!", s)
}

func clubOf(s services.Session) string {
	if s.User.ClubName != nil {
		return *s.User.ClubName
	}
	return "your club"
}

func (h *handlers) forgotPassword(c *gin.Context) {
	var in struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Auth.ForgotPassword(c.Request.Context(), in.Email)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, res.Message(), nil)
}

func (h *handlers) adminResetPassword(c *gin.Context) {
	var in services.ResetPasswordInput
	if !bindJSON(c, &in) {
		return
	}
	u := middlewares.CurrentUser(c)
	if err := h.Auth.ResetPassword(c.Request.Context(), u.ID, in); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "Password updated successfully!", nil)
}

func (h *handlers) me(c *gin.Context) {
	u := middlewares.CurrentUser(c)
	utils.OK(c, http.StatusOK, "", gin.H{"user": u.Profile()})
}
