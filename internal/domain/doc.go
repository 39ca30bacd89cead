// Package domain models unmanned-aircraft flight notifications and turns them
// into normalized flight records.
//
// # Data Sources
//
// Notifications arrive either as formalized telegram text (one or more
// messages in a flat batch) or as spreadsheet exports in which each row
// carries the telegrams of one flight. Three message kinds exist:
//
//	SHR  flight plan filing
//	DEP  actual departure report
//	ARR  actual arrival report
//
// # Telegram Conventions
//
// Tokens are labels followed by "/" or a space, matched case-insensitively:
//
//	SID/7772187998          flight identifier (SHR); "SID 7772187998" in DEP/ARR
//	DEP/5957N02905E         departure point (SHR); ADEPZ in DEP
//	DEST/5957N02905E        destination point (SHR); ADARRZ in ARR
//	DOF/240101              date of flight, YYMMDD
//	ADD 240101 / ADA 240101 actual departure / arrival date
//	ATD 0900 / ATA 0915     actual departure / arrival time, HHMM UTC
//	OPR/<text>              operator, free text up to the next label
//	TYP/<word> REG/<word>   aircraft type and registration
//	M0050/M0100             altitude band in meters
//	ZONA <text>             operating zone, up to the next "/"
//
// The three kinds overlap: DEP and ARR messages often repeat the SHR-style
// DEP/ and DEST/ tokens, and extraction falls back to them when the
// specialised ADEPZ/ADARRZ tokens are missing.
//
// Coordinates come in two fixed-width grammars, DDMM[NS]DDDMM[EW] and
// DDMMSS[NS]DDDMMSS[EW]. Two-digit years are read as 20YY.
//
// # Spreadsheet Layouts
//
// A workbook may mix layouts across sheets, each classified on its own by
// [DetectLayout]:
//
//	telegram  title row + header row, then date | SHR | DEP | ARR; the sheet
//	          name is the region label
//	center    one header row, then center | SHR | DEP | ARR
//	standard  legacy flat columns (date, tail number, type, operator, ...)
//
// # Error Tiers
//
// A missing token leaves a field empty and is not reported. A row or
// fragment that cannot be used (undecodable date, coordinate outside both
// grammars) produces a [ParseWarning] and processing continues. Only
// container-level failures are returned as errors.
package domain
