package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collegeevents/utils"
)

// activeClubs 給申請管理員的下拉選單：尚未被認領的社團，依類別分組
func (h *handlers) activeClubs(c *gin.Context) {
	clubs, err := h.Clubs.ActiveByCategory(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{"clubs": clubs})
}

func (h *handlers) allClubs(c *gin.Context) {
	clubs, err := h.Clubs.All(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, http.StatusOK, "", gin.H{"clubs": clubs})
}
