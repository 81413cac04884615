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

package engine

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/weavego/weavego/api/types"
	"github.com/weavego/weavego/pointcut"
	reflectutil "github.com/weavego/weavego/utils/reflect"
)

// Advisor is the default pointcut-driven advisor. A nil pointcut means the
// canonical match-everything pointcut. Advisors without an explicit order run
// after every explicitly ordered advisor, preserving registration order among
// themselves; advice implementing types.Ordered supplies its own order.
//
// Advisor 默认的切入点驱动增强器。切入点为 nil 表示标准的全匹配切入点。
// 未显式指定顺序的增强器在所有显式排序的增强器之后执行，彼此之间保持注册顺序；
// 实现 types.Ordered 的增强自带顺序。
type Advisor struct {
	pointcut types.Pointcut
	advice   types.Advice
	order    int
}

var _ types.PointcutAdvisor = (*Advisor)(nil)

// NewAdvisor creates an advisor ordered by the advice's own order when it
// implements types.Ordered, otherwise unordered.
func NewAdvisor(pc types.Pointcut, advice types.Advice) *Advisor {
	order := types.OrderUnspecified
	if ordered, ok := advice.(types.Ordered); ok {
		order = ordered.Order()
	}
	return NewOrderedAdvisor(pc, advice, order)
}

// NewOrderedAdvisor creates an advisor with an explicit order value,
// the smaller the value, the higher the priority.
func NewOrderedAdvisor(pc types.Pointcut, advice types.Advice, order int) *Advisor {
	if pc == nil {
		pc = pointcut.TruePointcut
	}
	return &Advisor{pointcut: pc, advice: advice, order: order}
}

func (a *Advisor) Pointcut() types.Pointcut { return a.pointcut }
func (a *Advisor) Advice() types.Advice     { return a.advice }
func (a *Advisor) Order() int               { return a.order }

// Introduction is the default introduction advisor: it adds whole interface
// implementations, served by a delegate object, to every matched type.
// The delegate is validated against the declared interfaces eagerly, at
// construction time, never at first matching call.
//
// Introduction 默认的引入增强器：为每个匹配的类型添加由委托对象提供的完整接口实现。
// 委托对象在构造时（而不是首次匹配调用时）针对声明的接口进行预先校验。
type Introduction struct {
	filter     types.ClassFilter
	delegate   types.Advice
	interfaces []reflect.Type
	order      int
}

var _ types.IntroductionAdvisor = (*Introduction)(nil)

// NewIntroduction creates and validates an introduction advisor. The delegate
// must structurally implement every declared interface.
func NewIntroduction(filter types.ClassFilter, delegate types.Advice, interfaces ...reflect.Type) (*Introduction, error) {
	if filter == nil {
		filter = pointcut.TrueClassFilter
	}
	a := &Introduction{
		filter:     filter,
		delegate:   delegate,
		interfaces: interfaces,
		order:      types.OrderUnspecified,
	}
	if ordered, ok := delegate.(types.Ordered); ok {
		a.order = ordered.Order()
	}
	if err := a.ValidateInterfaces(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Introduction) ClassFilter() types.ClassFilter { return a.filter }
func (a *Introduction) Advice() types.Advice           { return a.delegate }
func (a *Introduction) Order() int                     { return a.order }

func (a *Introduction) Interfaces() []reflect.Type {
	out := make([]reflect.Type, len(a.interfaces))
	copy(out, a.interfaces)
	return out
}

func (a *Introduction) ValidateInterfaces() error {
	for _, iface := range a.interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return fmt.Errorf("%w: %v is not an interface type", types.ErrIntroductionNotImplemented, iface)
		}
		if !reflectutil.ObjectImplements(a.delegate, iface) {
			return fmt.Errorf("%w: %T does not implement %v", types.ErrIntroductionNotImplemented, a.delegate, iface)
		}
	}
	return nil
}

// sortAdvisors stable-sorts advisors by ascending order value, so advisors
// with equal order and all unordered advisors keep their registration order.
func sortAdvisors(advisors []types.Advisor) []types.Advisor {
	sorted := make([]types.Advisor, len(advisors))
	copy(sorted, advisors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order() < sorted[j].Order()
	})
	return sorted
}
