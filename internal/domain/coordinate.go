package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// coordMinutesRe matches DDMM[NS]DDDMM[EW], e.g. 5957N02905E.
	coordMinutesRe = regexp.MustCompile(`^(\d{2})(\d{2})([NS])(\d{3})(\d{2})([EW])$`)

	// coordSecondsRe matches DDMMSS[NS]DDDMMSS[EW], e.g. 440846N0430829E.
	coordSecondsRe = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})([NS])(\d{3})(\d{2})(\d{2})([EW])$`)

	tokenSpaceStripper = strings.NewReplacer(" ", "", "\t", "", "\r", "", "\n", "", "\u00a0", "")
)

// DecodeCoordinate decodes a fixed-width coordinate token into decimal
// degrees. Whitespace and line breaks inside the token are ignored. It
// reports false when the token matches neither grammar or lies outside the
// valid latitude/longitude range.
func DecodeCoordinate(token string) (Coordinate, bool) {
	token = strings.ToUpper(tokenSpaceStripper.Replace(token))
	if token == "" {
		return Coordinate{}, false
	}

	if m := coordMinutesRe.FindStringSubmatch(token); m != nil {
		lat, okLat := dmsToDecimal(m[1], m[2], "", m[3], 90)
		lon, okLon := dmsToDecimal(m[4], m[5], "", m[6], 180)
		if okLat && okLon {
			return Coordinate{Lat: lat, Lon: lon}, true
		}
		return Coordinate{}, false
	}

	if m := coordSecondsRe.FindStringSubmatch(token); m != nil {
		lat, okLat := dmsToDecimal(m[1], m[2], m[3], m[4], 90)
		lon, okLon := dmsToDecimal(m[5], m[6], m[7], m[8], 180)
		if okLat && okLon {
			return Coordinate{Lat: lat, Lon: lon}, true
		}
	}

	return Coordinate{}, false
}

// dmsToDecimal converts degree/minute/second digit groups to a signed
// decimal value. sec may be empty.
func dmsToDecimal(deg, min, sec, hemisphere string, limit float64) (float64, bool) {
	d, err := strconv.Atoi(deg)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(min)
	if err != nil || m >= 60 {
		return 0, false
	}
	s := 0
	if sec != "" {
		s, err = strconv.Atoi(sec)
		if err != nil || s >= 60 {
			return 0, false
		}
	}

	v := float64(d) + float64(m)/60.0 + float64(s)/3600.0
	if v > limit {
		return 0, false
	}
	if hemisphere == "S" || hemisphere == "W" {
		v = -v
	}
	return v, true
}

// EncodeCoordinate renders c in the minutes grammar, or in the seconds
// grammar when withSeconds is set, rounding to the nearest unit.
func EncodeCoordinate(c Coordinate, withSeconds bool) string {
	latHemi, lonHemi := "N", "E"
	if c.Lat < 0 {
		latHemi = "S"
	}
	if c.Lon < 0 {
		lonHemi = "W"
	}

	if withSeconds {
		latD, latM, latS := splitSeconds(math.Abs(c.Lat))
		lonD, lonM, lonS := splitSeconds(math.Abs(c.Lon))
		return fmt.Sprintf("%02d%02d%02d%s%03d%02d%02d%s", latD, latM, latS, latHemi, lonD, lonM, lonS, lonHemi)
	}

	latD, latM := splitMinutes(math.Abs(c.Lat))
	lonD, lonM := splitMinutes(math.Abs(c.Lon))
	return fmt.Sprintf("%02d%02d%s%03d%02d%s", latD, latM, latHemi, lonD, lonM, lonHemi)
}

func splitMinutes(v float64) (deg, min int) {
	total := int(math.Round(v * 60))
	return total / 60, total % 60
}

func splitSeconds(v float64) (deg, min, sec int) {
	total := int(math.Round(v * 3600))
	return total / 3600, (total % 3600) / 60, total % 60
}
