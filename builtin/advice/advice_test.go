/*
 * Copyright 2024 The WeaveGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package advice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/engine"
	"github.com/weavego/weavego/test/assert"
)

type flakyService struct {
	mu        sync.Mutex
	attempts  int
	succeedAt int
}

func (s *flakyService) Fetch() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts < s.succeedAt {
		return "", fmt.Errorf("attempt %d failed", s.attempts)
	}
	return "ok", nil
}

func (s *flakyService) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

type blockingService struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingService) Work() int {
	s.started <- struct{}{}
	<-s.release
	return 1
}

func newProxyWith(t *testing.T, config types.Config, target interface{}, adviceUnit types.Advice) types.Proxy {
	t.Helper()
	support := engine.NewAdvisedSupport(config, target)
	assert.Nil(t, support.AddAdvice(adviceUnit))
	proxy, err := engine.NewProxy(support)
	assert.Nil(t, err)
	return proxy
}

func newAdvice(t *testing.T, config types.Config, component types.AdviceComponent, configuration types.Configuration) types.Advice {
	t.Helper()
	instance := component.New()
	assert.Nil(t, instance.Init(config, configuration))
	return instance.Advice()
}

func TestComponentsHaveUniqueTypes(t *testing.T) {
	seen := map[string]bool{}
	for _, component := range Components() {
		assert.False(t, seen[component.Type()], "duplicate type %s", component.Type())
		seen[component.Type()] = true
	}
	assert.Equal(t, 5, len(seen))
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 3}
	retry := newAdvice(t, config, &Retry{}, types.Configuration{"maxAttempts": 3})
	proxy := newProxyWith(t, config, service, retry)

	result, err := proxy.Invoke(context.Background(), "Fetch")
	assert.Nil(t, err)
	assert.Equal(t, "ok", result[0])
	assert.Equal(t, 3, service.Attempts())
}

func TestRetryExhaustsAttempts(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 10}
	retry := newAdvice(t, config, &Retry{}, types.Configuration{"maxAttempts": 2})
	proxy := newProxyWith(t, config, service, retry)

	_, err := proxy.Invoke(context.Background(), "Fetch")
	assert.NotNil(t, err)
	assert.Equal(t, 2, service.Attempts())
}

func TestRetryNoRetryOnSuccess(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 1}
	retry := newAdvice(t, config, &Retry{}, types.Configuration{})
	proxy := newProxyWith(t, config, service, retry)

	result, err := proxy.Invoke(context.Background(), "Fetch")
	assert.Nil(t, err)
	assert.Equal(t, "ok", result[0])
	assert.Equal(t, 1, service.Attempts())
}

func TestRetryDelayFromConfiguration(t *testing.T) {
	retry := &Retry{}
	instance := retry.New().(*Retry)
	assert.Nil(t, instance.Init(types.NewConfig(), types.Configuration{
		"maxAttempts": 5,
		"delay":       "10ms",
	}))
	assert.Equal(t, 5, instance.Config.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, instance.Config.Delay)
}

func TestConcurrencyLimiterRejectsExcessCalls(t *testing.T) {
	config := types.NewConfig()
	service := &blockingService{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	limiter := newAdvice(t, config, &ConcurrencyLimiter{}, types.Configuration{"max": 1})
	proxy := newProxyWith(t, config, service, limiter)

	done := make(chan error, 1)
	go func() {
		_, err := proxy.Invoke(context.Background(), "Work")
		done <- err
	}()
	<-service.started

	// The slot is taken, the second call fails fast.
	_, err := proxy.Invoke(context.Background(), "Work")
	assert.True(t, errors.Is(err, types.ErrConcurrencyLimitReached))

	close(service.release)
	assert.Nil(t, <-done)

	limiterAdvice := limiter.(*ConcurrencyLimiter)
	assert.Equal(t, int64(0), limiterAdvice.InFlight(), "slot released after completion")
}

func TestMetricsCountsOutcomes(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 2}
	component := (&Metrics{}).New().(*Metrics)
	assert.Nil(t, component.Init(config, nil))
	proxy := newProxyWith(t, config, service, component.Advice())

	_, _ = proxy.Invoke(context.Background(), "Fetch")
	_, _ = proxy.Invoke(context.Background(), "Fetch")

	snapshot := component.Metrics()
	assert.Equal(t, int64(2), snapshot.Total)
	assert.Equal(t, int64(1), snapshot.Failed)
	assert.Equal(t, int64(1), snapshot.Success)
	assert.Equal(t, int64(0), snapshot.Current)

	component.Reset()
	assert.Equal(t, int64(0), component.Metrics().Total)
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
	done  chan struct{}
}

func (l *captureLogger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
	l.mu.Unlock()
	select {
	case l.done <- struct{}{}:
	default:
	}
}

func TestDebugLogsCalls(t *testing.T) {
	logger := &captureLogger{done: make(chan struct{}, 1)}
	config := types.NewConfig(types.WithLogger(logger))
	service := &flakyService{succeedAt: 1}
	debug := newAdvice(t, config, &Debug{}, types.Configuration{"label": "svc"})
	proxy := newProxyWith(t, config, service, debug)

	result, err := proxy.Invoke(context.Background(), "Fetch")
	assert.Nil(t, err)
	assert.Equal(t, "ok", result[0])

	select {
	case <-logger.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no log line arrived")
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Equal(t, 1, len(logger.lines))
}

func TestScriptProceedsAndBlocks(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 1}
	script := newAdvice(t, config, &Script{}, types.Configuration{
		"script": `
			function Invoke(inv) {
				if (inv.methodName == 'Forbidden') {
					throw 'not allowed';
				}
				return inv.proceed();
			}
		`,
	})
	proxy := newProxyWith(t, config, service, script)

	result, err := proxy.Invoke(context.Background(), "Fetch")
	assert.Nil(t, err)
	assert.Equal(t, "ok", result[0])
}

func TestScriptReplacesResult(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 1}
	script := newAdvice(t, config, &Script{}, types.Configuration{
		"script": `
			function Invoke(inv) {
				inv.proceed();
				return ['replaced'];
			}
		`,
	})
	proxy := newProxyWith(t, config, service, script)

	result, err := proxy.Invoke(context.Background(), "Fetch")
	assert.Nil(t, err)
	assert.Equal(t, "replaced", result[0])
	assert.Equal(t, 1, service.Attempts())
}

func TestScriptThrowBecomesError(t *testing.T) {
	config := types.NewConfig()
	service := &flakyService{succeedAt: 1}
	script := newAdvice(t, config, &Script{}, types.Configuration{
		"script": `
			function Invoke(inv) {
				throw 'vetoed';
			}
		`,
	})
	proxy := newProxyWith(t, config, service, script)

	_, err := proxy.Invoke(context.Background(), "Fetch")
	assert.NotNil(t, err)
	assert.Equal(t, 0, service.Attempts())
}

func TestScriptCompileErrorAtInit(t *testing.T) {
	component := (&Script{}).New()
	err := component.Init(types.NewConfig(), types.Configuration{"script": "function Invoke( {"})
	assert.NotNil(t, err)
}

func TestScriptRequiresSource(t *testing.T) {
	component := (&Script{}).New()
	err := component.Init(types.NewConfig(), types.Configuration{})
	assert.NotNil(t, err)
}
