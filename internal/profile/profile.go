package profile

import (
    "database/sql"
    "fmt"
    "regexp"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
)

var bandwidthPattern = regexp.MustCompile(`^(?i)[0-9]+[KM]$`)

// Resolver answers bandwidth-limit questions over a set of connection types.
// Profiles reference their parent by name, so inheritance is a walk over the
// map rather than a live object graph.
type Resolver struct {
    profiles map[string]models.ConnectionType
}

func NewResolver(types []models.ConnectionType) *Resolver {
    profiles := make(map[string]models.ConnectionType, len(types))
    for _, ct := range types {
        profiles[ct.Name] = ct
    }
    return &Resolver{profiles: profiles}
}

func (r *Resolver) Get(name string) (models.ConnectionType, bool) {
    ct, ok := r.profiles[name]
    return ct, ok
}

// Validate checks a profile's bandwidth formats and its parent chain. It must
// run on every write so the unguarded inheritance walk stays safe.
func (r *Resolver) Validate(name string) error {
    ct, ok := r.profiles[name]
    if !ok {
        return fmt.Errorf("connection type %s does not exist", name)
    }

    for field, value := range map[string]sql.NullString{
        "speed_limit_rx": ct.SpeedLimitRx,
        "speed_limit_tx": ct.SpeedLimitTx,
        "burst_limit_rx": ct.BurstLimitRx,
        "burst_limit_tx": ct.BurstLimitTx,
    } {
        if value.Valid && value.String != "" && !bandwidthPattern.MatchString(value.String) {
            return fmt.Errorf("%s must be in format: NUMBER[K|M] (e.g., 2M or 512K)", field)
        }
    }

    if ct.ParentProfile.Valid && ct.ParentProfile.String == ct.Name {
        return fmt.Errorf("parent profile cannot be the same as the current profile")
    }

    return r.validateChain(name, map[string]bool{})
}

func (r *Resolver) validateChain(name string, visited map[string]bool) error {
    if visited[name] {
        return fmt.Errorf("circular inheritance detected in connection type profiles")
    }
    visited[name] = true

    ct, ok := r.profiles[name]
    if !ok {
        return fmt.Errorf("parent profile %s does not exist", name)
    }
    if ct.ParentProfile.Valid && ct.ParentProfile.String != "" {
        return r.validateChain(ct.ParentProfile.String, visited)
    }
    return nil
}

// resolve returns the nearest non-empty value walking up the parent chain.
// Acyclicity is enforced at write time; this walk does not re-check it.
func (r *Resolver) resolve(name string, get func(models.ConnectionType) sql.NullString) string {
    ct, ok := r.profiles[name]
    if !ok {
        return ""
    }
    if v := get(ct); v.Valid && v.String != "" {
        return v.String
    }
    if ct.ParentProfile.Valid && ct.ParentProfile.String != "" {
        return r.resolve(ct.ParentProfile.String, get)
    }
    return ""
}

// Limits is the resolved 4-tuple of bandwidth limits for one profile.
type Limits struct {
    SpeedRx string
    SpeedTx string
    BurstRx string
    BurstTx string
}

// BandwidthLimits resolves each limit independently through inheritance.
func (r *Resolver) BandwidthLimits(name string) Limits {
    return Limits{
        SpeedRx: r.resolve(name, func(ct models.ConnectionType) sql.NullString { return ct.SpeedLimitRx }),
        SpeedTx: r.resolve(name, func(ct models.ConnectionType) sql.NullString { return ct.SpeedLimitTx }),
        BurstRx: r.resolve(name, func(ct models.ConnectionType) sql.NullString { return ct.BurstLimitRx }),
        BurstTx: r.resolve(name, func(ct models.ConnectionType) sql.NullString { return ct.BurstLimitTx }),
    }
}

// HasParent reports whether the profile delegates its limits to a router-side
// parent profile. Such profiles must not carry explicit rate parameters.
func (r *Resolver) HasParent(name string) bool {
    ct, ok := r.profiles[name]
    return ok && ct.ParentProfile.Valid && ct.ParentProfile.String != ""
}
