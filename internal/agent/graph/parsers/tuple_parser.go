package parsers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/prompts"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen = 32 * 1024
	maxRecords    = 64
	maxTupleLen   = 1024
	maxErrSnippet = 120
)

type Intent struct {
	Name       string
	Confidence float64
	Priority   float64
}

type Entity struct {
	Type       string
	Value      string
	Confidence float64
}

// Extraction is the parsed form of one NLU model answer.
type Extraction struct {
	Intents  []Intent
	Entities []Entity
	// Errors lists tuples that were skipped and why.
	Errors    []string
	Truncated bool
}

// Entity returns the highest-confidence entity of type t.
func (e *Extraction) Entity(t string) (Entity, bool) {
	var best Entity
	found := false
	for _, en := range e.Entities {
		if en.Type == t && (!found || en.Confidence > best.Confidence) {
			best, found = en, true
		}
	}
	return best, found
}

// HasIntent reports whether name was extracted with at least minConfidence.
func (e *Extraction) HasIntent(name string, minConfidence float64) bool {
	for _, it := range e.Intents {
		if it.Name == name && it.Confidence >= minConfidence {
			return true
		}
	}
	return false
}

func (e *Extraction) addErr(msg string) {
	e.Errors = append(e.Errors, msg)
}

// ParseExtraction parses the tuple format produced under the NLU prompt:
// records split by "##", fields by "<||>", terminated by "<|COMPLETE|>".
// Malformed records are skipped and noted in Errors.
func ParseExtraction(content string) (out *Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "tuple_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("tuple parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			out = nil
		}
	}()

	out = &Extraction{}
	if len(content) > maxContentLen {
		logx.Warn().Str("component", "tuple_parser").Int("orig_len", len(content)).Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		out.Truncated = true
	}
	if idx := strings.Index(content, prompts.CompletionDelimiter); idx >= 0 {
		content = content[:idx]
	}

	for i, rec := range strings.Split(content, prompts.RecordDelimiter) {
		if i >= maxRecords {
			out.addErr("records capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		kind, parts, perr := splitTuple(rec)
		if perr != nil {
			out.addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch kind {
		case "intent":
			if len(parts) < 3 {
				out.addErr("intent: insufficient parts")
				continue
			}
			name := strings.TrimSpace(parts[0])
			if name == "" || !utf8.ValidString(name) {
				out.addErr("intent: invalid name")
				continue
			}
			conf, err := unitInterval(parts[1])
			if err != nil {
				out.addErr("intent: invalid confidence")
				continue
			}
			prio, err := unitInterval(parts[2])
			if err != nil {
				out.addErr("intent: invalid priority")
				continue
			}
			out.Intents = append(out.Intents, Intent{Name: name, Confidence: conf, Priority: prio})

		case "entity":
			if len(parts) < 3 {
				out.addErr("entity: insufficient parts")
				continue
			}
			etype := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			if etype == "" || val == "" || !utf8.ValidString(etype) || !utf8.ValidString(val) {
				out.addErr("entity: invalid type or value")
				continue
			}
			conf, err := unitInterval(parts[2])
			if err != nil {
				out.addErr("entity: invalid confidence")
				continue
			}
			out.Entities = append(out.Entities, Entity{Type: etype, Value: val, Confidence: conf})

		default:
			out.addErr("unknown tuple type")
		}
	}
	return out, nil
}

// splitTuple strips the outer parens and returns the tuple kind and its fields.
func splitTuple(s string) (string, []string, error) {
	if len(s) > maxTupleLen {
		return "", nil, fmt.Errorf("tuple too large")
	}
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", nil, fmt.Errorf("invalid tuple parens")
	}
	parts := strings.Split(s[1:len(s)-1], prompts.TupleDelimiter)
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("invalid tuple parts")
	}
	return strings.TrimSpace(parts[0]), parts[1:], nil
}

func unitInterval(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, fmt.Errorf("%v out of range", v)
	}
	return v, nil
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
