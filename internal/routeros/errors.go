package routeros

import (
    "errors"
    "fmt"
    "strings"
)

// ConfigError marks a request that is invalid before any network call is
// made (unknown service name, malformed profile data).
type ConfigError struct {
    Message string
}

func (e *ConfigError) Error() string {
    return e.Message
}

// Kinds of connection failure, classified for actionable messages.
var (
    ErrAuthFailed         = errors.New("router authentication failed")
    ErrConnectionRefused  = errors.New("router refused the connection")
    ErrNetworkUnreachable = errors.New("router network unreachable")
    ErrTimeout            = errors.New("router connection timed out")
)

// classify maps a transport error onto one of the known failure kinds by
// matching on the error text. This is best-effort: unrecognized messages
// fall through as a generic connection error.
func classify(err error) error {
    if err == nil {
        return nil
    }
    msg := strings.ToLower(err.Error())
    switch {
    case strings.Contains(msg, "invalid user name or password") ||
        strings.Contains(msg, "authentication failed") ||
        strings.Contains(msg, "login failure"):
        return fmt.Errorf("%w: %v", ErrAuthFailed, err)
    case strings.Contains(msg, "connection refused"):
        return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
    case strings.Contains(msg, "network is unreachable") ||
        strings.Contains(msg, "no route to host"):
        return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
    case strings.Contains(msg, "i/o timeout") ||
        strings.Contains(msg, "deadline exceeded"):
        return fmt.Errorf("%w: %v", ErrTimeout, err)
    default:
        return fmt.Errorf("could not establish connection to router: %w", err)
    }
}
