// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package helpers

import (
	"testing"
	"time"
)

type getEnvFn interface{}

func TestGetEnv(t *testing.T) {
	type args struct {
		key      string
		fallback interface{}
	}
	type testKey struct {
		key   string
		value string
	}
	tests := []struct {
		name   string
		args   args
		setKey testKey
		want   interface{}
		testFn getEnvFn
	}{
		{name: "Test GetEnv Fallback", args: args{"INVALID_ENV_VAR", "8888"}, setKey: testKey{"", ""}, want: "8888", testFn: GetEnv},
		{name: "Test GetEnv", args: args{"VALID_ENV_VAR", "8888"}, setKey: testKey{"VALID_ENV_VAR", "1234"}, want: "1234", testFn: GetEnv},
		{name: "Test GetEnvInt Fallback", args: args{"INVALID_ENV_VAR", 8888}, setKey: testKey{"", ""}, want: 8888, testFn: GetEnvInt},
		{name: "Test GetEnvInt", args: args{"VALID_ENV_VAR", 8888}, setKey: testKey{"VALID_ENV_VAR", "1234"}, want: 1234, testFn: GetEnvInt},
		{name: "Test GetEnvInt Unparsable", args: args{"VALID_ENV_VAR", 8888}, setKey: testKey{"VALID_ENV_VAR", "many"}, want: 8888, testFn: GetEnvInt},
		{name: "Test GetEnvBool Fallback", args: args{"INVALID_ENV_VAR", true}, setKey: testKey{"", ""}, want: true, testFn: GetEnvBool},
		{name: "Test GetEnvBool", args: args{"VALID_ENV_VAR", true}, setKey: testKey{"VALID_ENV_VAR", "false"}, want: false, testFn: GetEnvBool},
		{name: "Test GetEnvDuration Fallback", args: args{"INVALID_ENV_VAR", time.Second}, setKey: testKey{"", ""}, want: time.Second, testFn: GetEnvDuration},
		{name: "Test GetEnvDuration", args: args{"VALID_ENV_VAR", time.Second}, setKey: testKey{"VALID_ENV_VAR", "90s"}, want: 90 * time.Second, testFn: GetEnvDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setKey.key != "" {
				t.Setenv(tt.setKey.key, tt.setKey.value)
			}
			var got interface{}
			switch fn := tt.testFn.(type) {
			case func(string, string) string:
				got = fn(tt.args.key, tt.args.fallback.(string))
			case func(string, int) int:
				got = fn(tt.args.key, tt.args.fallback.(int))
			case func(string, bool) bool:
				got = fn(tt.args.key, tt.args.fallback.(bool))
			case func(string, time.Duration) time.Duration:
				got = fn(tt.args.key, tt.args.fallback.(time.Duration))
			}
			if got != tt.want {
				t.Errorf("%T() = %v, want %v", tt.testFn, got, tt.want)
			}
		})
	}
}
