// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package email sends notification and alert emails through the local SMTP
// relay.
package email

import (
	"fmt"
	"net/mail"

	"gopkg.in/gomail.v2"
)

// Sender delivers a message.
type Sender interface {
	Send(subject, body string) error
}

// Mailer sends emails from a fixed sender to a fixed recipient via
// unencrypted SMTP on localhost.
type Mailer struct {
	from *mail.Address
	to   *mail.Address
	send func(m *gomail.Message) error
}

// NewMailer creates a Mailer. Both addresses accept the `Name
// <user@host>` and bare `user@host` forms.
func NewMailer(from, to string) (*Mailer, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid email address %q: %s", from, err)
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("invalid email address %q: %s", to, err)
	}
	dialer := &gomail.Dialer{Host: "localhost", Port: 25}
	return &Mailer{
		from: fromAddr,
		to:   toAddr,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}, nil
}

// Send delivers a plain text message.
func (m *Mailer) Send(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from.Address, m.from.Name)
	msg.SetAddressHeader("To", m.to.Address, m.to.Name)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send email to %s: %s", m.to.Address, err)
	}
	return nil
}
