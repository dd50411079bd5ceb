// Package config is the mybatis-config.xml equivalent: a central registry
// of dialect, cache, and result-map settings loaded once at startup and
// consulted by every other package. Backed by spf13/viper for the
// environment/file/flag-layered loading startdusk-go-libs and
// eframework-org-GO.CRUD both reach for, rather than a hand-rolled flag/env
// reader.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/xiaoma778/mybatis-3/driver"
)

// Configuration is the resolved, ready-to-use settings object, equivalent
// to org.apache.ibatis.session.Configuration trimmed to the subset of
// global settings this port exposes: which dialect to target, whether the
// L2 cache is enabled at all, and the default statement timeout.
type Configuration struct {
	Dialect           driver.Dialect
	DataSource        string
	CacheEnabled      bool
	DefaultTimeoutSec int
	MapUnderscoreToCamelCase bool

	resultMaps map[string]bool
}

// Load reads settings from a config file (any format viper supports --
// yaml, json, toml) plus environment variable overrides prefixed MYBATIS_,
// the pattern viper.AutomaticEnv exists for.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MYBATIS")
	v.AutomaticEnv()

	v.SetDefault("dialect", "sqlite")
	v.SetDefault("cacheEnabled", true)
	v.SetDefault("defaultTimeoutSec", 0)
	v.SetDefault("mapUnderscoreToCamelCase", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	d, err := driver.Lookup(v.GetString("dialect"))
	if err != nil {
		return nil, err
	}

	return &Configuration{
		Dialect:                  d,
		DataSource:               v.GetString("dataSource"),
		CacheEnabled:             v.GetBool("cacheEnabled"),
		DefaultTimeoutSec:        v.GetInt("defaultTimeoutSec"),
		MapUnderscoreToCamelCase: v.GetBool("mapUnderscoreToCamelCase"),
		resultMaps:               map[string]bool{},
	}, nil
}

// ParseProperty resolves a "key" or "key:default" token (the text inside a
// "${...}" placeholder) against the defaults map, falling back to the
// token's own default when the key is absent, the same fallback syntax
// org.apache.ibatis.parsing.PropertyParser supports for mybatis-config.xml
// placeholders. It's a standalone helper (not backed by viper) because it
// needs the "key:default" splitting behavior verbatim, which is specific
// to MyBatis' own config-file property syntax rather than a general
// settings source.
func ParseProperty(token string, defaults map[string]string) (string, bool) {
	key, def, hasDefault := strings.Cut(token, ":")
	if v, ok := defaults[key]; ok {
		return v, true
	}
	if hasDefault {
		return def, true
	}
	return "", false
}
