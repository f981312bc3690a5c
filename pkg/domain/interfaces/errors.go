package interfaces

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by every repository backend
var (
	ErrNotFound  = goerr.New("not found")
	ErrSlugTaken = goerr.New("project slug already taken")
)
