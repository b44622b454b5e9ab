// Package source provides the frame datasets that sessions stream from.
package source

import (
	"errors"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/lanikai/framecast/internal/logging"
)

var log = logging.DefaultLogger.WithTag("source")

// ErrSourceUnavailable is returned (wrapped) when a dataset cannot be opened.
var ErrSourceUnavailable = errors.New("source unavailable")

// A Source is a lazy, finite sequence of frame identifiers. Next returns io.EOF
// once the sequence is exhausted. A Source is used by one goroutine at a time.
type Source interface {
	Next() (int, error)
	Close() error
}

// A function used to open a specific source type.
type OpenFunc func(path string) (Source, error)

var registry = map[string]OpenFunc{}

// RegisterType registers a source type, identified by its tag. Sources of
// this type are opened with the given function.
func RegisterType(tag string, open OpenFunc) {
	registry[tag] = open
}

// Open a source based on its spec, "tag:path". A spec without a registered tag
// is treated as a file path.
func Open(spec string) (Source, error) {
	if log.Verbosity() >= logging.Debug {
		var tags []string
		for t := range registry {
			tags = append(tags, t)
		}
		sort.Strings(tags)
		log.Debug("Registered source types: %v", tags)
	}

	tag, path := "file", spec
	if parts := strings.SplitN(spec, ":", 2); len(parts) == 2 {
		if _, found := registry[parts[0]]; found {
			tag, path = parts[0], parts[1]
		}
	}

	open, found := registry[tag]
	if !found {
		return nil, pkgerrors.Wrapf(ErrSourceUnavailable, "source type '%s' not registered", tag)
	}
	return open(path)
}
