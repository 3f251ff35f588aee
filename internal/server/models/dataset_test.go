package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceKeys(t *testing.T) {
	assert.Equal(t, "file:abc", FileSourceKey("abc"))
	assert.Equal(t, "sheet:s1/0", SheetSourceKey("s1", "0"))
	assert.NotEqual(t, SheetSourceKey("s1", "0"), SheetSourceKey("s1", "1"))
}

func TestExternalSession_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	var nilSession *ExternalSession
	assert.True(t, nilSession.Expired(now))
	assert.True(t, (&ExternalSession{}).Expired(now))
	assert.False(t, (&ExternalSession{AccessToken: "a"}).Expired(now), "zero expiry never expires")
	assert.False(t, (&ExternalSession{AccessToken: "a", Expiry: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&ExternalSession{AccessToken: "a", Expiry: now}).Expired(now))
}
