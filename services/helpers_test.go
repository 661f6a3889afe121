package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collegeevents/mocks"
	"collegeevents/models"
	"collegeevents/utils"
)

const testCost = 4 // bcrypt.MinCost，測試跑快一點

type authFixture struct {
	svc   *AuthService
	users *mocks.UserRepo
	clubs *mocks.ClubRepo
	mail  *mocks.FakeMailer
	dir   string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	vault, err := utils.NewPasswordVault("test-vault-key")
	require.NoError(t, err)

	f := &authFixture{
		users: mocks.NewUserRepo(),
		clubs: mocks.NewClubRepo(
			models.Club{ID: "c1", Category: "Professional Bodies", ClubName: "BMSCE ACM Student Chapter", IsActive: true},
			models.Club{ID: "c2", Category: "Gaming Club", ClubName: "RESPAWN – Gaming Club", IsActive: true},
		),
		mail: &mocks.FakeMailer{},
		dir:  t.TempDir(),
	}
	f.svc = NewAuthService(AuthDeps{
		Users:              f.users,
		Clubs:              f.clubs,
		Tokens:             utils.NewTokenManager("test-secret", time.Hour),
		Vault:              vault,
		Mailer:             f.mail,
		Uploads:            &utils.Uploader{Dir: f.dir, MaxBytes: 1 << 20},
		BcryptCost:         testCost,
		TempPasswordPrefix: "BMSCE@",
	})
	return f
}

// fileHeader builds a real *multipart.FileHeader the way gin hands one over.
func fileHeader(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field][0]
}

func kindOf(err error) utils.Kind { return utils.KindOf(err) }

func messageOf(err error) string { return utils.AsAppError(err).Message }

type regFixture struct {
	svc    *RegistrationService
	events *mocks.EventRepo
	regs   *mocks.RegRepo
	users  *mocks.UserRepo
	gw     *mocks.FakeGateway
}

func newRegFixture(t *testing.T, withGateway bool) *regFixture {
	t.Helper()
	f := &regFixture{
		events: mocks.NewEventRepo(),
		regs:   mocks.NewRegRepo(),
		users:  mocks.NewUserRepo(),
		gw:     &mocks.FakeGateway{Secret: "rzp_secret", Key: "rzp_test_key"},
	}
	deps := RegistrationDeps{Events: f.events, Regs: f.regs, Users: f.users, Currency: "INR"}
	if withGateway {
		deps.Gateway = f.gw
	}
	f.svc = NewRegistrationService(deps)
	return f
}

func (f *regFixture) student(t *testing.T, name string) *models.User {
	t.Helper()
	u := models.NewStudent(name, name+"@bmsce.ac.in", "1BM22"+name)
	require.NoError(t, f.users.Create(t.Context(), &u))
	return &u
}

func (f *regFixture) admin(t *testing.T, club string) *models.User {
	t.Helper()
	u := models.NewClubAdmin(club+"@bmsce.ac.in", models.AdminProfile{ClubCategory: "Coding Clubs", ClubName: club})
	require.NoError(t, f.users.Create(t.Context(), &u))
	return &u
}

func (f *regFixture) event(t *testing.T, owner *models.User, fee float64, capacity int) models.Event {
	t.Helper()
	e := models.NewEvent("Hack Night", "24h hackathon", time.Now().Add(72*time.Hour), owner)
	e.RegistrationFee = fee
	e.MaxRegistrations = capacity
	require.NoError(t, f.events.Create(t.Context(), &e))
	return e
}
