package contact

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/geo"
)

// ResolverConfig holds configuration for the contact resolver.
type ResolverConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// Resolver builds the layered contact list for a region.
type Resolver struct {
	repo   Repository
	logger zerolog.Logger
}

// Resolution is a resolved contact list.
type Resolution struct {
	Contacts []Contact
	// Floor is true when the hardcoded national list stood in for the directory.
	Floor bool
	// Err joins the failures of the layers that could not be read.
	Err error
}

// NewResolver creates a new contact resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{repo: cfg.Repository, logger: cfg.Logger}
}

// Resolve returns district contacts, then state contacts, then national
// contacts, with no phone number repeated. The first occurrence of a number
// wins. National numbers are always present: when the national layer cannot
// be read or is empty, the hardcoded floor takes its place.
func (r *Resolver) Resolve(ctx context.Context, region geo.Region) Resolution {
	var (
		layers [][]Contact
		errs   []error
	)

	if region.Known() && region.District != "" && region.District != geo.UnknownDistrict {
		layer, err := r.layer(ctx, Filter{Level: LevelDistrict, State: region.State, District: region.District})
		if err != nil {
			errs = append(errs, err)
		}
		layers = append(layers, layer)
	}
	if region.Known() {
		layer, err := r.layer(ctx, Filter{Level: LevelState, State: region.State})
		if err != nil {
			errs = append(errs, err)
		}
		layers = append(layers, layer)
	}

	national, err := r.layer(ctx, Filter{Level: LevelNational})
	floor := false
	if err != nil {
		errs = append(errs, err)
	}
	if len(national) == 0 {
		national = Floor()
		floor = true
	}
	layers = append(layers, national)

	res := Resolution{Contacts: Merge(layers...), Floor: floor, Err: errors.Join(errs...)}
	if floor {
		r.logger.Warn().
			Err(res.Err).
			Str("state", region.State).
			Msg("national contacts unavailable, using hardcoded floor")
	} else if res.Err != nil {
		r.logger.Warn().Err(res.Err).Str("state", region.State).Msg("some contact layers unavailable")
	}
	return res
}

func (r *Resolver) layer(ctx context.Context, f Filter) ([]Contact, error) {
	if r.repo == nil {
		return nil, fault.Unavailable("contacts", errors.New("no repository"))
	}
	contacts, err := r.repo.List(ctx, f)
	if err != nil {
		return nil, fault.Unavailable("contacts "+string(f.Level), err)
	}
	sorted := make([]Contact, len(contacts))
	copy(sorted, contacts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return sorted, nil
}

// Merge concatenates layers in order, dropping contacts whose normalized
// phone number already appeared.
func Merge(layers ...[]Contact) []Contact {
	seen := make(map[string]bool)
	var out []Contact
	for _, layer := range layers {
		for _, c := range layer {
			key := NormalizePhone(c.Phone)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}
