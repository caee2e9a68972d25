package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"cvelib/internal/domain"
)

const (
	dataTypeRecord = "CVE_RECORD"

	// GeneratorDisabled as the generator value leaves x_generator off the container.
	GeneratorDisabled = "-"
)

var (
	ErrNoContainer       = errors.New("record: no container found")
	ErrNoADPContainer    = errors.New("record: record has no ADP container")
	ErrManyADPContainers = errors.New("record: record has more than one ADP container; submit a single container")
	ErrInvalidOrgID      = errors.New("record: org ID is not a UUID")
)

// Load decodes a JSON container or full CVE record from r.
func Load(r io.Reader) (domain.Container, error) {
	var c domain.Container
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode record JSON: %w", err)
	}
	if c == nil {
		return nil, ErrNoContainer
	}
	return c, nil
}

// LoadFile decodes the container stored at path.
func LoadFile(path string) (domain.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// IsFullRecord reports whether c is a complete CVE record rather than a container.
func IsFullRecord(c domain.Container) bool {
	dt, _ := c["dataType"].(string)
	return dt == dataTypeRecord
}

// ExtractCNAContainer returns the CNA container of a full record, or c itself
// when it is already a container.
func ExtractCNAContainer(c domain.Container) (domain.Container, error) {
	if !IsFullRecord(c) {
		return c, nil
	}
	containers, err := containersOf(c)
	if err != nil {
		return nil, err
	}
	cna, ok := containers["cna"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: record has no containers.cna object", ErrNoContainer)
	}
	return cna, nil
}

// ExtractADPContainer returns the single ADP container of a full record, or c
// itself when it is already a container.
func ExtractADPContainer(c domain.Container) (domain.Container, error) {
	if !IsFullRecord(c) {
		return c, nil
	}
	containers, err := containersOf(c)
	if err != nil {
		return nil, err
	}
	adp, _ := containers["adp"].([]any)
	switch len(adp) {
	case 0:
		return nil, ErrNoADPContainer
	case 1:
	default:
		return nil, ErrManyADPContainers
	}
	first, ok := adp[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: containers.adp[0] is not an object", ErrNoContainer)
	}
	return first, nil
}

func containersOf(c domain.Container) (map[string]any, error) {
	containers, ok := c["containers"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: record has no containers object", ErrNoContainer)
	}
	return containers, nil
}

// OrgIDFunc looks up the caller's organization UUID.
type OrgIDFunc func(ctx context.Context) (string, error)

// AddProviderMetadata returns a copy of c with providerMetadata set to
// {"orgId": <uuid>}. A container that already has providerMetadata, in any
// form, is returned unchanged and orgID is not called.
func AddProviderMetadata(ctx context.Context, c domain.Container, orgID OrgIDFunc) (domain.Container, error) {
	out := clone(c)
	if _, ok := out["providerMetadata"]; ok {
		return out, nil
	}
	id, err := orgID(ctx)
	if err != nil {
		return nil, fmt.Errorf("look up org ID: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrgID, id)
	}
	out["providerMetadata"] = map[string]any{"orgId": parsed.String()}
	return out, nil
}

// ResolveGenerator maps the configured generator setting to the engine name
// passed to AddGenerator. An unset value selects the built-in name; any set
// value, including "" and GeneratorDisabled, is kept as is.
func ResolveGenerator(value string, set bool, builtin string) string {
	if !set {
		return builtin
	}
	return value
}

// AddGenerator returns a copy of c with x_generator.engine set to engine. An
// existing x_generator is left alone and GeneratorDisabled adds nothing.
func AddGenerator(c domain.Container, engine string) domain.Container {
	out := clone(c)
	if engine == GeneratorDisabled {
		return out
	}
	if _, ok := out["x_generator"]; ok {
		return out
	}
	out["x_generator"] = map[string]any{"engine": engine}
	return out
}

func clone(c domain.Container) domain.Container {
	out := make(domain.Container, len(c)+2)
	for k, v := range c {
		out[k] = v
	}
	return out
}
