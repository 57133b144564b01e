package mail

import (
	"context"
	"strings"
)

// Outbox renders account emails with links back to the API and queues them.
type Outbox struct {
	dispatcher *Dispatcher
	siteURL    string
}

func NewOutbox(dispatcher *Dispatcher, siteURL string) *Outbox {
	return &Outbox{dispatcher: dispatcher, siteURL: strings.TrimRight(siteURL, "/")}
}

// ActivationLink is the confirm URL mailed after registration.
func (o *Outbox) ActivationLink(token string) string {
	return o.siteURL + "/api/v1/accounts/activation/confirm/" + token
}

// PasswordResetLink is the confirm URL mailed for a reset request.
func (o *Outbox) PasswordResetLink(token string) string {
	return o.siteURL + "/api/v1/accounts/password-reset/confirm/" + token
}

func (o *Outbox) SendActivation(_ context.Context, email, token string) error {
	return o.queue(KindActivation, email, o.ActivationLink(token))
}

func (o *Outbox) SendPasswordReset(_ context.Context, email, token string) error {
	return o.queue(KindPasswordReset, email, o.PasswordResetLink(token))
}

func (o *Outbox) queue(kind, email, link string) error {
	msg, err := Render(kind, email, link)
	if err != nil {
		return err
	}
	return o.dispatcher.Enqueue(msg)
}
