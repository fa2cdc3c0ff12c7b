package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Mode names the stages a pipeline applies.
type Mode int

const (
	// ModePassthrough copies well-formed records unchanged.
	ModePassthrough Mode = iota
	// ModeEmbed attaches embeddings.
	ModeEmbed
	// ModeConvert projects already embedded records.
	ModeConvert
	// ModePrepare embeds and then projects.
	ModePrepare
)

const (
	embeddingsInfix = "_embeddings"
	projectedInfix  = "_qdrant"
)

func (m Mode) String() string {
	switch m {
	case ModePassthrough:
		return "upload"
	case ModeEmbed:
		return "embed"
	case ModeConvert:
		return "convert"
	case ModePrepare:
		return "prepare"
	default:
		return "unknown"
	}
}

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModePassthrough, ModeEmbed, ModeConvert, ModePrepare} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func splitName(path string) (dir, stem, ext string) {
	dir, base := filepath.Split(path)
	ext = filepath.Ext(base)
	return dir, strings.TrimSuffix(base, ext), ext
}

// OutputPath derives where mode writes the output for input:
//
//	embed:   <dir>/<stem>_embeddings<ext>
//	convert: <dir>/<stem without _embeddings>_qdrant<ext>
//	prepare: <dir>/<stem>_qdrant<ext>
//
// Passthrough runs have no output file and return "".
func OutputPath(mode Mode, input string) string {
	dir, stem, ext := splitName(input)
	switch mode {
	case ModeEmbed:
		return filepath.Join(dir, stem+embeddingsInfix+ext)
	case ModeConvert:
		return filepath.Join(dir, strings.ReplaceAll(stem, embeddingsInfix, "")+projectedInfix+ext)
	case ModePrepare:
		return filepath.Join(dir, stem+projectedInfix+ext)
	default:
		return ""
	}
}

// DefaultNamespace derives a projection namespace from an output path: the
// stem without _qdrant, lower-cased, with whitespace and dashes as underscores.
func DefaultNamespace(output string) string {
	_, stem, _ := splitName(output)
	stem = strings.TrimSuffix(stem, projectedInfix)
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return '_'
		}
		return unicode.ToLower(r)
	}, stem)
}

// IsInput reports whether a directory run in mode should pick up path.
// Embed and prepare take raw sources, convert takes embedded files and
// passthrough takes projected files.
func IsInput(mode Mode, path string) bool {
	_, stem, ext := splitName(path)
	if ext != ".jsonl" {
		return false
	}
	embedded := strings.HasSuffix(stem, embeddingsInfix)
	projected := strings.HasSuffix(stem, projectedInfix)
	switch mode {
	case ModeEmbed, ModePrepare:
		return !embedded && !projected
	case ModeConvert:
		return embedded
	case ModePassthrough:
		return projected
	default:
		return false
	}
}
