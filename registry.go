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

package weavego

import (
	"errors"
	"fmt"
	"sync"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/builtin/advice"
)

// Registry is the default advice component registry, preloaded with the
// builtin components. Custom components registered here become usable from
// weave definitions by their Type().
//
// Registry 默认的增强组件注册器，预加载了内置组件。在此注册的自定义组件
// 可在织入定义中通过其 Type() 使用。
var Registry = new(ComponentRegistry)

func init() {
	for _, component := range advice.Components() {
		if err := Registry.Register(component); err != nil {
			panic(err)
		}
	}
}

// ErrComponentExists is returned when registering a duplicate component type.
var ErrComponentExists = errors.New("component already exists")

// ErrComponentNotFound is returned for component types nobody registered.
var ErrComponentNotFound = errors.New("component not found")

// ComponentRegistry 增强组件注册器默认实现
type ComponentRegistry struct {
	components map[string]types.AdviceComponent
	sync.RWMutex
}

var _ types.AdviceRegistry = (*ComponentRegistry)(nil)

// Register registers a component prototype by its Type().
func (r *ComponentRegistry) Register(component types.AdviceComponent) error {
	r.Lock()
	defer r.Unlock()
	if r.components == nil {
		r.components = make(map[string]types.AdviceComponent)
	}
	if _, ok := r.components[component.Type()]; ok {
		return fmt.Errorf("%w: %s", ErrComponentExists, component.Type())
	}
	r.components[component.Type()] = component
	return nil
}

// Unregister removes a component type.
func (r *ComponentRegistry) Unregister(adviceType string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.components[adviceType]; !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, adviceType)
	}
	delete(r.components, adviceType)
	return nil
}

// NewAdvice creates a fresh, initialized advice instance of the given type.
// Every call returns an independent instance with its own state.
func (r *ComponentRegistry) NewAdvice(config types.Config, adviceType string, configuration types.Configuration) (types.Advice, error) {
	r.RLock()
	prototype, ok := r.components[adviceType]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, adviceType)
	}
	component := prototype.New()
	if err := component.Init(config, configuration); err != nil {
		return nil, err
	}
	return component.Advice(), nil
}

// GetComponents returns a copy of the registered component prototypes.
func (r *ComponentRegistry) GetComponents() map[string]types.AdviceComponent {
	r.RLock()
	defer r.RUnlock()
	components := make(map[string]types.AdviceComponent, len(r.components))
	for k, v := range r.components {
		components[k] = v
	}
	return components
}
