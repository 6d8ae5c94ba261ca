package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := tokenGenerator{
		secretKey: []byte("secret"),
		timeout:   3 * 24 * time.Hour,
		nowFunc:   time.Now,
	}

	now := time.Now()
	usr := User{
		ID:        "8c2b4ef1-6bb8-4b3c-93a4-5a6e2f0f7f11",
		Name:      "T",
		Username:  "tester",
		Email:     "t@test.test",
		IsActive:  true,
		Role:      RoleTeacher,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	require.NoError(t, usr.SetPassword("pwd"))

	validToken, err := tg.makeToken(usr)
	require.NoError(t, err)

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	expiredGen := tg
	expiredGen.nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := expiredGen.makeToken(usr)
	require.NoError(t, err)

	// a used token is invalidated by the password change
	changedUsr := usr
	require.NoError(t, changedUsr.SetPassword("new-pwd"))

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: changedUsr, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tg.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "8c2b4ef1-6bb8-4b3c-93a4-5a6e2f0f7f11"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("not base64 !")
	assert.Error(t, err)
}
