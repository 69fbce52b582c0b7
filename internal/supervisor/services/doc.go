// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

/*
Package services provides suture.Service implementations for Panelhouse.

Each service implements

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer, so supervisor events name it.

HTTPServerService:
  - Runs *http.Server via ListenAndServe
  - Drains connections with Shutdown when the context is canceled

SessionJanitorService:
  - Calls CleanupExpired(now - timeout) on the session store every interval
  - Publishes removed counts to panelhouse_sessions_expired_total
  - Optionally drops stale login lockout entries on the same tick
*/
package services
