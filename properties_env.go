/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"strings"

	"github.com/spf13/viper"
)

/**
envResolver serves property keys from process environment variables through viper.
The key 'db.host' with prefix 'APP' reads the variable 'APP_DB_HOST'.
*/

type envResolver struct {
	viper    *viper.Viper
	priority int
}

/**
NewEnvResolver builds a PropertyResolver backed by the environment. It resolves above
the local property store so that deployment overrides win over file defaults.
*/

func NewEnvResolver(prefix string) PropertyResolver {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &envResolver{
		viper:    v,
		priority: defaultPropertyResolverPriority + 100,
	}
}

func (t *envResolver) Priority() int {
	return t.priority
}

func (t *envResolver) GetProperty(key string) (string, bool) {
	if !t.viper.IsSet(key) {
		return "", false
	}
	return t.viper.GetString(key), true
}
