package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Macro resolution and execution
	MacroInfo            Code = 1000
	MacroNotFound        Code = 1001
	MacroVersionMismatch Code = 1002
	MacroInputInvalid    Code = 1003
	MacroPanicked        Code = 1004
	MacroCancelled       Code = 1005
	MacroTimedOut        Code = 1006

	// Derive targets
	DeriveInfo              Code = 2000
	DeriveUnsupportedTarget Code = 2001
	DeriveUnknownOption     Code = 2002

	// Emitted by macro implementations that have nothing more specific
	MacroUserError Code = 3000

	// Pipeline
	PipeInfo             Code = 4000
	DiagnosticsTruncated Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	MacroInfo:               "Macro information",
	MacroNotFound:           "Macro not found",
	MacroVersionMismatch:    "Macro compatibility version mismatch",
	MacroInputInvalid:       "Macro input could not be built",
	MacroPanicked:           "Macro panicked",
	MacroCancelled:          "Macro expansion cancelled",
	MacroTimedOut:           "Macro timed out",
	DeriveInfo:              "Derive information",
	DeriveUnsupportedTarget: "Derive target not supported by macro",
	DeriveUnknownOption:     "Unknown macro option",
	MacroUserError:          "Macro reported an error",
	PipeInfo:                "Pipeline information",
	DiagnosticsTruncated:    "Too many diagnostics",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("MAC%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DRV%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("USR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PIP%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
