// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package configs

import "fmt"

type RedisAuth struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type RedisConfig struct {
	Host          string    `mapstructure:"host" validate:"required"`
	Port          int       `mapstructure:"port" validate:"required"`
	Db            int       `mapstructure:"db"`
	Auth          RedisAuth `mapstructure:"auth"`
	MaxConnection int       `mapstructure:"max_connection"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
