package server

const (
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	gray    = "\033[90m"

	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   yellow,
	"DELETE": red,
	"PUT":    magenta,
}
