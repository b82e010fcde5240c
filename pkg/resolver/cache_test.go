package resolver_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/escrito/pkg/resolver"
)

func TestCacheHitRequiresExactSource(t *testing.T) {
	c := resolver.NewCache(10)
	prefix := strings.Repeat("a", 120)

	c.Put(resolver.ScopeContextual, prefix+" uno", "mayúsculas", "RESULTADO UNO")

	got, ok := c.Get(resolver.ScopeContextual, prefix+" uno", "mayúsculas")
	assert.True(t, ok)
	assert.Equal(t, "RESULTADO UNO", got)

	// same key, different source
	_, ok = c.Get(resolver.ScopeContextual, prefix+" dos", "mayúsculas")
	assert.False(t, ok)
}

func TestCacheKeyIncludesScopeAndInstruction(t *testing.T) {
	a := resolver.CacheKey(resolver.ScopeContextual, "texto", "mayúsculas")

	assert.NotEqual(t, a, resolver.CacheKey(resolver.ScopeGlobal, "texto", "mayúsculas"))
	assert.NotEqual(t, a, resolver.CacheKey(resolver.ScopeContextual, "texto", "minúsculas"))
	assert.Equal(t, a, resolver.CacheKey(resolver.ScopeContextual, "texto", "mayúsculas"))
}

func TestCacheEvictsOldestFirst(t *testing.T) {
	c := resolver.NewCache(2)

	for i := 0; i < 3; i++ {
		c.Put(resolver.ScopeContextual, fmt.Sprintf("texto %d", i), "x", "y")
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(resolver.ScopeContextual, "texto 0", "x")
	assert.False(t, ok)
	_, ok = c.Get(resolver.ScopeContextual, "texto 2", "x")
	assert.True(t, ok)
}

func TestCacheOverwriteKeepsSize(t *testing.T) {
	c := resolver.NewCache(2)

	c.Put(resolver.ScopeGlobal, "texto", "x", "uno")
	c.Put(resolver.ScopeGlobal, "texto", "x", "dos")

	got, _ := c.Get(resolver.ScopeGlobal, "texto", "x")
	assert.Equal(t, "dos", got)
	assert.Equal(t, 1, c.Len())
}
