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
package email

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Template is an email with {{name}} placeholders in its subject and body.
type Template struct {
	Subject string
	Body    string
}

// NewTemplate creates a Template.
func NewTemplate(subject, body string) Template {
	return Template{Subject: subject, Body: body}
}

// DefaultDownloadedTemplate is the stock "torrent downloaded" notification.
func DefaultDownloadedTemplate() Template {
	return NewTemplate(
		"Downloaded: {{name}}", "{{name}} torrent has been downloaded.")
}

// Render substitutes {{key}} placeholders from params in the subject and
// body. Placeholders without a matching key are left as is.
func (t Template) Render(params map[string]string) (subject, body string) {
	subject, body = t.Subject, t.Body
	for key, value := range params {
		placeholder := "{{" + key + "}}"
		subject = strings.ReplaceAll(subject, placeholder, value)
		body = strings.ReplaceAll(body, placeholder, value)
	}
	return subject, body
}

// LoadTemplate reads a template file: the first line is the subject, the
// second line must be empty, the rest is the body.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}

	lines := strings.SplitN(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n", 3)

	subject := strings.TrimSpace(lines[0])
	if subject == "" {
		return Template{}, errors.New(
			"invalid email template: the first line must contain a subject")
	}
	if len(lines) < 2 || strings.TrimSpace(lines[1]) != "" {
		return Template{}, fmt.Errorf(
			"invalid email template: the second line must be empty")
	}
	var body string
	if len(lines) == 3 {
		body = lines[2]
	}
	return NewTemplate(subject, body), nil
}
