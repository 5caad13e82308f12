// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hashicorp/capgate/gate"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>capgate webapp</title></head>
<body>
{{if .IsAuthenticated}}
<p>Logged in as <b>{{.UserID}}</b>.</p>
<p><a href="/profile">Profile</a></p>
{{else}}
<p>You're not logged in. <a href="{{.LoginPath}}">Log in</a></p>
{{end}}
</body>
</html>
`))

type page struct {
	IsAuthenticated bool
	UserID          string
	LoginPath       string
}

// newRouter returns the webapp's routes behind the gate.  /profile requires
// a logged in user.
func newRouter(g *gate.Gate) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.Handler)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		a := gate.FromContext(req.Context())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = pageTmpl.Execute(w, page{
			IsAuthenticated: a.IsAuthenticated,
			UserID:          a.UserID,
			LoginPath:       g.LoginPath(),
		})
	})
	r.With(g.RequireAuthentication).Get("/profile", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("subject: " + gate.UserID(req) + "\n"))
	})
	return r
}
