// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"html/template"
	"net/http"

	"github.com/tomtom215/panelhouse/internal/logging"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Admin login</title></head>
<body>
<h1>Admin login</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="{{.Action}}">
<label>Username <input name="username" autocomplete="username" required></label>
<label>Password <input name="password" type="password" autocomplete="current-password" required></label>
<button type="submit">Log in</button>
</form>
</body>
</html>
`))

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="csrf-token" content="{{.CSRFToken}}">
<meta name="session-timeout" content="{{.TimeoutSeconds}}">
<meta name="session-warning" content="{{.WarningSeconds}}">
<title>Admin</title>
</head>
<body>
<h1>Signed in as {{.Username}}</h1>
<ul>{{range .Presets}}<li>{{.}}</li>{{end}}</ul>
<form method="post" action="{{.LogoutPath}}">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<button type="submit">Log out</button>
</form>
</body>
</html>
`))

type loginView struct {
	Action string
	Error  string
}

type dashboardView struct {
	Username       string
	CSRFToken      string
	TimeoutSeconds int
	WarningSeconds int
	Presets        []string
	LogoutPath     string
}

func renderHTML(w http.ResponseWriter, code int, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := tmpl.Execute(w, data); err != nil {
		logging.Error().Err(err).Str("template", tmpl.Name()).Msg("Failed to render page")
	}
}
