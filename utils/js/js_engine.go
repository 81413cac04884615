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

// Package js executes the JavaScript used by script advice. It compiles the
// source once, keeps warmed-up goja VMs in a sync.Pool and interrupts scripts
// that exceed the configured execution time.
//
// js 包执行脚本增强使用的 JavaScript。它对源码只编译一次，用 sync.Pool 维护
// 预热的 goja 虚拟机，并中断超过配置执行时间的脚本。
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/weavego/weavego/api/types"
)

// GlobalKey is the name scripts use to read the engine's global properties.
const GlobalKey = "global"

// Engine is a pooled goja engine around one compiled script.
type Engine struct {
	vmPool  sync.Pool
	config  types.Config
	program *goja.Program
}

// NewEngine compiles the script and prepares the VM pool. The vars map is
// installed into every VM before the script runs.
func NewEngine(config types.Config, script string, vars map[string]interface{}) (*Engine, error) {
	program, err := goja.Compile("", script, true)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		config:  config,
		program: program,
	}
	e.vmPool = sync.Pool{
		New: func() interface{} {
			return e.newVm(config, vars)
		},
	}
	return e, nil
}

func (e *Engine) newVm(config types.Config, vars map[string]interface{}) *goja.Runtime {
	vm := goja.New()
	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			config.Logger.Printf("set script var %s error: %s", k, err.Error())
		}
	}
	if len(config.Properties) != 0 {
		if err := vm.Set(GlobalKey, config.Properties); err != nil {
			config.Logger.Printf("set global properties error: %s", err.Error())
		}
	}
	timer := e.startTimeout(vm)
	_, err := vm.RunProgram(e.program)
	e.stopTimeout(timer)
	if err != nil {
		config.Logger.Printf("js vm error: %s", err.Error())
	}
	return vm
}

// Execute calls a function defined by the script. Extra vars, when given, are
// visible to the function for the duration of this call.
func (e *Engine) Execute(functionName string, vars map[string]interface{}, args ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := e.vmPool.Get().(*goja.Runtime)
	defer e.vmPool.Put(vm)

	for k, v := range vars {
		if serr := vm.Set(k, v); serr != nil {
			return nil, serr
		}
	}

	var timer *time.Timer
	if e.config.ScriptMaxExecutionTime > 0 {
		timer = e.startTimeout(vm)
		defer e.stopTimeout(timer)
	}

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}

	var params []goja.Value
	if len(args) > 0 {
		params = make([]goja.Value, len(args))
		for i, v := range args {
			params[i] = vm.ToValue(v)
		}
	}

	res, ferr := f(goja.Undefined(), params...)
	if ferr != nil {
		return nil, ferr
	}
	return res.Export(), nil
}

func (e *Engine) Stop() {
}

// startTimeout interrupts the VM when the script runs past the configured
// execution time. time.AfterFunc avoids spawning a goroutine per call.
func (e *Engine) startTimeout(vm *goja.Runtime) *time.Timer {
	if e.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(e.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

func (e *Engine) stopTimeout(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
