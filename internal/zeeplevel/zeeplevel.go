// Package zeeplevel parses the plain-text level format published on the
// workshop and computes the canonical content hash used for deduplication
// and change detection.
//
// The format is newline-delimited:
//
//	line 0: header — field 1 is the author, field 2 the level UID
//	line 1: camera data (ignored)
//	line 2: times and environment — four medal times, then skybox and ground
//	line 3+: one block per line, block id before the first comma
package zeeplevel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unknown is the sentinel used when a level's name or author is blank.
const Unknown = "[Unknown]"

var (
	// ErrEmptyFile indicates a level file with no content at all.
	ErrEmptyFile = errors.New("level file is empty")

	// ErrMalformed indicates a level file missing required header fields or lines.
	ErrMalformed = errors.New("malformed level file")

	// ErrNoBlocks indicates a level whose block section is empty.
	// Such a level cannot produce metadata.
	ErrNoBlocks = errors.New("no blocks found in level")
)

// Block id sets that drive track validity and checkpoint counting.
var (
	startIDs      = map[string]bool{"1": true, "1363": true}
	finishIDs     = map[string]bool{"2": true, "1273": true, "1274": true, "1616": true}
	checkpointIDs = map[string]bool{
		"22": true, "372": true, "373": true,
		"1275": true, "1276": true, "1277": true, "1278": true, "1279": true,
	}
)

// Times holds the four medal thresholds from the times line.
// Valid is false when the line had fewer than four fields or any field
// failed to parse as a finite number; all thresholds are zero in that case.
type Times struct {
	Validation float64
	Gold       float64
	Silver     float64
	Bronze     float64
	Valid      bool
}

// Environment holds the skybox and ground ids from the times line.
// Both are math.MaxInt32 when the line did not have exactly six fields.
type Environment struct {
	Skybox int
	Ground int
}

// BlockCount is one entry of the block histogram, in first-seen order.
type BlockCount struct {
	ID    string
	Count int
}

// Level is the parsed form of a single level file.
type Level struct {
	Name        string
	Author      string
	UID         string
	ContentHash string
	Times       Times
	Environment Environment
	Blocks      []BlockCount
	Checkpoints int
	TrackValid  bool

	// Warnings collects non-fatal oddities found while parsing
	// (missing environment fields, block lines without a comma).
	Warnings []string
}

// Valid reports whether the level is playable: finite times and a track
// with exactly one start and at least one finish.
func (l *Level) Valid() bool {
	return l.Times.Valid && l.TrackValid
}

// SerializeBlocks renders the histogram as "id:count" entries joined by "|".
// Returns ErrNoBlocks when the level has no blocks at all.
func (l *Level) SerializeBlocks() (string, error) {
	if len(l.Blocks) == 0 {
		return "", ErrNoBlocks
	}
	var sb strings.Builder
	for i, b := range l.Blocks {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(b.ID)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(b.Count))
	}
	return sb.String(), nil
}

// Parse parses the raw text of one level file. name is the display name
// (the file name without extension); a blank name becomes Unknown.
//
// A level with an empty block section parses successfully so its UID and
// content hash remain usable for matching; SerializeBlocks reports the
// ErrNoBlocks condition.
func Parse(name string, data []byte) (*Level, error) {
	if strings.TrimSpace(name) == "" {
		name = Unknown
	}

	lines := splitLines(string(data))
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: %d lines, need at least 3", ErrMalformed, len(lines))
	}

	lvl := &Level{Name: name}

	header := strings.Split(lines[0], ",")
	if len(header) < 3 {
		return nil, fmt.Errorf("%w: header has %d fields, need at least 3", ErrMalformed, len(header))
	}
	lvl.Author = header[1]
	lvl.UID = header[2]
	if strings.TrimSpace(lvl.Author) == "" {
		lvl.Author = Unknown
	}

	timesLine := strings.Split(lines[2], ",")
	lvl.Times = parseTimes(timesLine)

	if len(timesLine) == 6 {
		skybox, err := strconv.Atoi(strings.TrimSpace(timesLine[4]))
		if err != nil {
			return nil, fmt.Errorf("%w: skybox id %q", ErrMalformed, timesLine[4])
		}
		ground, err := strconv.Atoi(strings.TrimSpace(timesLine[5]))
		if err != nil {
			return nil, fmt.Errorf("%w: ground id %q", ErrMalformed, timesLine[5])
		}
		lvl.Environment = Environment{Skybox: skybox, Ground: ground}
	} else {
		lvl.Warnings = append(lvl.Warnings,
			fmt.Sprintf("times line has %d fields, environment unknown", len(timesLine)))
		lvl.Environment = Environment{Skybox: math.MaxInt32, Ground: math.MaxInt32}
	}

	index := make(map[string]int)
	for _, line := range lines[3:] {
		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			lvl.Warnings = append(lvl.Warnings, fmt.Sprintf("invalid block line %q", line))
			continue
		}
		id := line[:comma]
		if i, ok := index[id]; ok {
			lvl.Blocks[i].Count++
		} else {
			index[id] = len(lvl.Blocks)
			lvl.Blocks = append(lvl.Blocks, BlockCount{ID: id, Count: 1})
		}
	}

	starts, finishes := 0, 0
	for _, b := range lvl.Blocks {
		if startIDs[b.ID] {
			starts += b.Count
		}
		if finishIDs[b.ID] {
			finishes += b.Count
		}
		if checkpointIDs[b.ID] {
			lvl.Checkpoints += b.Count
		}
	}
	lvl.TrackValid = starts == 1 && finishes >= 1

	lvl.ContentHash = ContentHash(lines)
	return lvl, nil
}

// parseTimes parses the first four fields of the times line. Any parse
// failure or non-finite value resets all thresholds to zero.
func parseTimes(fields []string) Times {
	if len(fields) < 4 {
		return Times{}
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Times{}
		}
		vals[i] = v
	}

	return Times{
		Validation: vals[0],
		Gold:       vals[1],
		Silver:     vals[2],
		Bronze:     vals[3],
		Valid:      true,
	}
}

// splitLines splits on line breaks the way a line-by-line reader would:
// both \r\n and \n are accepted, and a trailing newline does not produce
// an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
