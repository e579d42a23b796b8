// Package assets holds the files embedded in the binaries: email templates and the common passwords list.
package assets

import "embed"

//go:embed all:templates common-passwords.txt
var FS embed.FS
