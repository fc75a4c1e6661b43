package routeros

import (
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
    tests := []struct {
        name string
        in   string
        want error
    }{
        {"auth", "from RouterOS device: invalid user name or password (6)", ErrAuthFailed},
        {"refused", "dial tcp 10.0.0.1:8728: connect: connection refused", ErrConnectionRefused},
        {"unreachable", "dial tcp 10.0.0.1:8728: connect: network is unreachable", ErrNetworkUnreachable},
        {"no route", "dial tcp 10.0.0.1:8728: connect: no route to host", ErrNetworkUnreachable},
        {"timeout", "dial tcp 10.0.0.1:8728: i/o timeout", ErrTimeout},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            got := classify(errors.New(tt.in))
            assert.ErrorIs(t, got, tt.want)
        })
    }
}

func TestClassifyUnrecognized(t *testing.T) {
    in := errors.New("something exploded")
    got := classify(in)
    require.Error(t, got)
    assert.ErrorIs(t, got, in)
    assert.Contains(t, got.Error(), "could not establish connection to router")
}

func TestClassifyNil(t *testing.T) {
    assert.NoError(t, classify(nil))
}
