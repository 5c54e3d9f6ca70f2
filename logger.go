package main

import (
	"fmt"
	"io"
	"log"

	"github.com/gookit/color"
)

// Logger is the minimal logging contract shared by all flows.
type Logger interface {
	Log(format string, args ...any)
}

// botLogger prints to the console and appends every line to the log file.
// Milestones get color on the console, plain text in the file.
type botLogger struct {
	file *log.Logger
}

func newBotLogger(file io.Writer) *botLogger {
	return &botLogger{file: log.New(file, "", log.LstdFlags)}
}

func (b *botLogger) Log(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(msg)
	b.file.Print(msg)
}

func (b *botLogger) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	color.Green.Println(msg)
	b.file.Print(msg)
}

func (b *botLogger) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	color.Red.Println(msg)
	b.file.Print(msg)
}
