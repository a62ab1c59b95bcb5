/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
)

// Failures surfaced to clients in acknowledgement payloads. Anything not
// listed here (out-of-phase submissions, duplicate submissions, judging a
// submission that does not exist) is deliberately a silent no-op at the
// engine boundary.
var (
	errRoomNotFound      = errors.New("Room not found")
	errGameInProgress    = errors.New("Game already in progress")
	errNoRoundInProgress = errors.New("No round in progress")
)

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
