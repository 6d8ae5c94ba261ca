package user

import (
	"context"

	"github.com/trezcool/gradebook/core"
)

type serviceMock struct {
	*service
}

// NewServiceMock returns a Service that sends password reset mails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) Service {
	svc := NewService(repo, mailSvc, conf, logger).(*service)
	return &serviceMock{service: svc}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.activeUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeToken is exposed for tests of the password reset flow.
func (svc *serviceMock) MakeToken(usr User) (string, error) {
	return svc.tokens.makeToken(usr)
}
