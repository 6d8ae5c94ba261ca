package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core/user"
	testutil "github.com/trezcool/gradebook/tests"
)

func Test_userApi_login(t *testing.T) {
	fx := setup(t)

	testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", testPassword, user.RoleTeacher, true)
	testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", testPassword, user.RoleTeacher, false)

	body := func(uname, pwd string) []byte {
		return marshalObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "missing credentials", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown user", body: body("kofi", testPassword), wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"})},
		{name: "wrong password", body: body("amensah", "lol"), wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"})},
		{name: "inactive user", body: body("yboateng", testPassword), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "with username", body: body("amensah", testPassword), wantCode: http.StatusOK},
		{name: "with email, any case", body: body(" AMA@test.gh ", testPassword), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := fx.run(t, tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}

	usr, err := fx.usrSvc.GetByUsernameOrEmail(context.Background(), "amensah")
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero(), "last login not set")
}

func Test_userApi_query(t *testing.T) {
	fx := setup(t)

	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.gh", "", user.RoleAdmin, true)
	ama := testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", "", user.RoleTeacher, true)
	yaw := testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", "", user.RoleTeacher, false)

	adminToken := fx.getToken(t, admin)
	path := func(v url.Values) string { return "/api/users?" + v.Encode() }

	tests := []httpTest{
		{name: "auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "admin required", path: "/api/users", token: fx.getToken(t, ama), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "get all", path: "/api/users", token: adminToken, wantData: marshalList(t, admin, ama, yaw)},
		{name: "search (unknown)", path: path(url.Values{"search": {"lol"}}), token: adminToken, wantData: marshalList(t)},
		{name: "search=BOA", path: path(url.Values{"search": {"BOA"}}), token: adminToken, wantData: marshalList(t, yaw)},
		{name: "role=teacher", path: path(url.Values{"role": {"teacher"}}), token: adminToken, wantData: marshalList(t, ama, yaw)},
		{name: "role=admin,teacher", path: path(url.Values{"role": {"admin", "teacher"}}), token: adminToken, wantData: marshalList(t, admin, ama, yaw)},
		{name: "order by -name", path: path(url.Values{"ordering": {"-name"}}), token: adminToken, wantData: marshalList(t, yaw, ama, admin)},
		{name: "order by role,-username", path: path(url.Values{"ordering": {"role,-username"}}), token: adminToken, wantData: marshalList(t, admin, yaw, ama)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, fx.run(t, tt))
		})
	}
}

func Test_userApi_create(t *testing.T) {
	fx := setup(t)

	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.gh", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", "", user.RoleTeacher, true)
	adminToken := fx.getToken(t, admin)

	newUser := func(uname, email, pwd string, role user.Role) []byte {
		return marshalObj(t, user.NewUser{
			Name:            "Kofi Asante",
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            role,
		})
	}

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", token: fx.getToken(t, teacher), body: newUser("kasante", "", testPassword, user.RoleTeacher), wantCode: http.StatusForbidden},
		{
			name: "invalid role", token: adminToken, body: newUser("kasante", "", testPassword, "student"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "no username nor email", token: adminToken, body: newUser("", "", testPassword, user.RoleTeacher), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			}),
		},
		{
			name: "weak password", token: adminToken, body: newUser("kasante", "", "password", user.RoleTeacher), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name: "username taken", token: adminToken, body: newUser("AMensah", "", testPassword, user.RoleTeacher), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "email taken", token: adminToken, body: newUser("", "ama@test.gh", testPassword, user.RoleTeacher), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{name: "teacher created", token: adminToken, body: newUser("kasante", "kofi@test.gh", testPassword, user.RoleTeacher), wantCode: http.StatusCreated},
		{name: "admin created", token: adminToken, body: newUser("", "head@test.gh", testPassword, user.RoleAdmin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users"

		t.Run(tt.name, func(t *testing.T) {
			rec := fx.run(t, tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				decode(t, rec, &usr)
				assert.NotEmpty(t, usr.ID)
				assert.True(t, usr.IsActive)
				assert.Equal(t, "Kofi Asante", usr.Name)
			}
		})
	}
}

func Test_userApi_retrieveAndUpdate(t *testing.T) {
	fx := setup(t)

	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.gh", "", user.RoleAdmin, true)
	ama := testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", "", user.RoleTeacher, true)
	yaw := testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", "", user.RoleTeacher, true)

	adminToken := fx.getToken(t, admin)
	amaToken := fx.getToken(t, ama)
	path := func(usr user.User) string { return "/api/users/" + usr.ID }

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "self", path: path(ama), token: amaToken, wantCode: http.StatusOK, wantData: marshalObj(t, ama)},
			{name: "other user as teacher", path: path(yaw), token: amaToken, wantCode: http.StatusNotFound},
			{name: "other user as admin", path: path(yaw), token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, yaw)},
			{name: "unknown user as admin", path: "/api/users/lol", token: adminToken, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			tt.method = http.MethodGet
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, fx.run(t, tt))
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		bPtr := func(b bool) *bool { return &b }

		tests := []httpTest{
			{name: "teacher cannot change role", path: path(ama), token: amaToken, body: marshalObj(t, user.UpdateUser{Role: user.RoleAdmin}), wantCode: http.StatusForbidden},
			{name: "teacher cannot deactivate", path: path(ama), token: amaToken, body: marshalObj(t, user.UpdateUser{IsActive: bPtr(false)}), wantCode: http.StatusForbidden},
			{name: "admin cannot demote self", path: path(admin), token: adminToken, body: marshalObj(t, user.UpdateUser{Role: user.RoleTeacher}), wantCode: http.StatusForbidden},
			{
				name: "password mismatch", path: path(ama), token: amaToken, wantCode: http.StatusBadRequest,
				body: marshalObj(t, user.UpdateUser{Password: testPassword, PasswordConfirm: "lol"}),
			},
			{name: "teacher renames self", path: path(ama), token: amaToken, body: marshalObj(t, user.UpdateUser{Name: "Ama Owusu"}), wantCode: http.StatusOK},
			{name: "admin deactivates teacher", path: path(yaw), token: adminToken, body: marshalObj(t, user.UpdateUser{IsActive: bPtr(false)}), wantCode: http.StatusOK},
		}
		for _, tt := range tests {
			tt.method = http.MethodPut
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, fx.run(t, tt))
			})
		}

		ctx := context.Background()
		got, err := fx.usrSvc.GetByID(ctx, ama.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ama Owusu", got.Name)
		assert.Equal(t, user.RoleTeacher, got.Role)

		got, err = fx.usrSvc.GetByID(ctx, yaw.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("deactivated token rejected", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/terms", token: fx.getToken(t, yaw), wantCode: http.StatusForbidden}
		checkCodeAndData(t, tt, fx.run(t, tt))
	})
}

func Test_userApi_destroy(t *testing.T) {
	fx := setup(t)

	admin := testutil.CreateUser(t, fx.usrRepo, "Admin", "admin", "admin@test.gh", "", user.RoleAdmin, true)
	ama := testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", "", user.RoleTeacher, true)
	yaw := testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", "", user.RoleTeacher, true)
	kofi := testutil.CreateUser(t, fx.usrRepo, "Kofi Asante", "kasante", "kofi@test.gh", "", user.RoleTeacher, true)
	adminToken := fx.getToken(t, admin)

	tests := []httpTest{
		{name: "teacher cannot delete", path: "/api/users/" + yaw.ID, token: fx.getToken(t, ama), wantCode: http.StatusNotFound},
		{name: "admin cannot delete self", path: "/api/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin cannot delete self in batch", path: "/api/users?id=" + yaw.ID + "&id=" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete one", path: "/api/users/" + yaw.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete many", path: "/api/users?id=" + ama.ID + "&id=" + kofi.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete
		t.Run(tt.name, func(t *testing.T) {
			rec := fx.run(t, tt)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	users, err := fx.usrSvc.Query(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []user.User{admin}, users)
}

func Test_userApi_refreshToken(t *testing.T) {
	fx := setup(t)

	teacher := testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", "", user.RoleTeacher, true)
	inactive := testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", "", user.RoleTeacher, false)

	now := time.Now()
	unrefreshable := echoapi.GetUserClaims(fx.conf, teacher)
	unrefreshable.OrigIssuedAt = now.Add(-2 * fx.conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := echoapi.GenerateToken(fx.conf, unrefreshable)
	require.NoError(t, err)

	expired := echoapi.GetUserClaims(fx.conf, teacher)
	expired.StandardClaims = jwt.StandardClaims{Subject: teacher.ID, ExpiresAt: now.Add(-time.Minute).Unix()}
	expiredToken, err := echoapi.GenerateToken(fx.conf, expired)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "expired token", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "inactive user", token: fx.getToken(t, inactive), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "refresh has expired"})},
		{name: "token refreshed", token: fx.getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, fx.run(t, tt))
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	fx := setup(t)

	usr := testutil.CreateUser(t, fx.usrRepo, "Ama Mensah", "amensah", "ama@test.gh", testPassword, user.RoleTeacher, true)
	testutil.CreateUser(t, fx.usrRepo, "Yaw Boateng", "yboateng", "yaw@test.gh", testPassword, user.RoleTeacher, false)

	t.Run("request", func(t *testing.T) {
		tests := []struct {
			email    string
			wantSent int
		}{
			{email: "lol@test.gh"},
			{email: "yaw@test.gh"}, // inactive
			{email: "AMA@test.gh", wantSent: 1},
		}
		for _, tt := range tests {
			t.Run(tt.email, func(t *testing.T) {
				fx.mailSvc.Reset()
				req, rec := newRequest(http.MethodPost, "/api/users/password-reset", marshalObj(t, echoapi.PasswordResetRequest{Email: tt.email}))
				fx.app.ServeHTTP(rec, req)

				assert.Equal(t, http.StatusOK, rec.Code)
				msgs := fx.mailSvc.SentMessages()
				require.Len(t, msgs, tt.wantSent)
				if tt.wantSent > 0 {
					assert.Equal(t, "ama@test.gh", msgs[0].To[0].Address)
					assert.Contains(t, msgs[0].TextContent, user.EncodeUID(usr))
				}
			})
		}
	})

	t.Run("confirm", func(t *testing.T) {
		tokenMaker, ok := fx.usrSvc.(interface {
			MakeToken(usr user.User) (string, error)
		})
		require.True(t, ok)
		token, err := tokenMaker.MakeToken(usr)
		require.NoError(t, err)

		newPwd := "N3w-Gr@debook"
		body := func(uid, token string) []byte {
			return marshalObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
		}

		tests := []httpTest{
			{name: "invalid uid", body: body("lol", token), wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"uid": user.ErrInvalidUID.Error()})},
			{name: "invalid token", body: body(user.EncodeUID(usr), "lol"), wantCode: http.StatusBadRequest},
			{name: "password reset", body: body(user.EncodeUID(usr), token), wantCode: http.StatusOK},
			{name: "token used once", body: body(user.EncodeUID(usr), token), wantCode: http.StatusBadRequest},
		}
		for _, tt := range tests {
			tt.method = http.MethodPost
			tt.path = "/api/users/password-reset-confirm"
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, fx.run(t, tt))
			})
		}

		got, err := fx.usrSvc.GetByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword(newPwd))
	})
}
