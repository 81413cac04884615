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

// Package reflect provides the reflection helpers the weaving engine is built
// on: exported-method enumeration, interface satisfaction checks, argument
// conversion and method dispatch with the trailing-error return convention.
package reflect

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ErrorType returns the reflect.Type of the builtin error interface.
func ErrorType() reflect.Type {
	return errorType
}

// Methods returns the exported method set of t in declaration order.
// Pass the pointer type to include pointer-receiver methods.
// Methods 按声明顺序返回 t 的导出方法集。传入指针类型以包含指针接收者方法。
func Methods(t reflect.Type) []reflect.Method {
	if t == nil {
		return nil
	}
	var methods []reflect.Method
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.PkgPath == "" {
			methods = append(methods, m)
		}
	}
	return methods
}

// InterfaceMethods returns the method set declared by an interface type.
// InterfaceMethods 返回接口类型声明的方法集。
func InterfaceMethods(iface reflect.Type) []reflect.Method {
	if iface == nil || iface.Kind() != reflect.Interface {
		return nil
	}
	var methods []reflect.Method
	for i := 0; i < iface.NumMethod(); i++ {
		methods = append(methods, iface.Method(i))
	}
	return methods
}

// Implements reports whether values of type t satisfy the interface type iface.
// Implements 判断类型 t 的值是否满足接口类型 iface。
func Implements(t reflect.Type, iface reflect.Type) bool {
	if t == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	return t.Implements(iface)
}

// ObjectImplements reports whether the object satisfies the interface type iface.
// ObjectImplements 判断对象是否满足接口类型 iface。
func ObjectImplements(object interface{}, iface reflect.Type) bool {
	if object == nil {
		return false
	}
	return Implements(reflect.TypeOf(object), iface)
}

// IndirectType strips pointer indirection from t.
// IndirectType 去掉 t 的指针间接层。
func IndirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// ConvertArgs converts call arguments into reflect values matching the
// parameter list of fnType, starting at the parameter with index offset
// (1 for methods with a receiver parameter, 0 for bound method values).
// Nil arguments become zero values of the parameter type; assignable and
// convertible values are accepted.
// ConvertArgs 把调用参数转换为与 fnType 形参列表匹配的 reflect 值。
func ConvertArgs(fnType reflect.Type, offset int, args []interface{}) ([]reflect.Value, error) {
	numIn := fnType.NumIn() - offset
	if fnType.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("argument count mismatch: want at least %d, got %d", numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("argument count mismatch: want %d, got %d", numIn, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		if fnType.IsVariadic() && i >= numIn-1 {
			paramType = fnType.In(fnType.NumIn() - 1).Elem()
		} else {
			paramType = fnType.In(i + offset)
		}
		v, err := convertArg(paramType, arg, i)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(paramType reflect.Type, arg interface{}, index int) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(paramType), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(paramType) {
		return v, nil
	}
	if v.Type().ConvertibleTo(paramType) {
		return v.Convert(paramType), nil
	}
	return reflect.Value{}, fmt.Errorf("argument %d of type %s is not assignable to %s", index, v.Type(), paramType)
}

// SplitResults converts the raw call results into a value slice and an error.
// A trailing error return, if declared, is split off; the remaining values
// form the result slice in declaration order.
// SplitResults 把原始调用结果拆分为值切片和错误。
func SplitResults(fnType reflect.Type, out []reflect.Value) ([]interface{}, error) {
	n := len(out)
	var callErr error
	if n > 0 && fnType.Out(fnType.NumOut()-1) == errorType {
		if e := out[n-1].Interface(); e != nil {
			callErr = e.(error)
		}
		out = out[:n-1]
	}
	results := make([]interface{}, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, callErr
}

// CallMethod dispatches the named method on the receiver with the given
// arguments, applying the trailing-error return convention.
// CallMethod 在接收者上分发指定方法并应用末尾 error 返回约定。
func CallMethod(receiver interface{}, methodName string, args []interface{}) ([]interface{}, error) {
	if receiver == nil {
		return nil, fmt.Errorf("cannot call method %s on nil receiver", methodName)
	}
	mv := reflect.ValueOf(receiver).MethodByName(methodName)
	if !mv.IsValid() {
		return nil, fmt.Errorf("type %T has no method %s", receiver, methodName)
	}
	in, err := ConvertArgs(mv.Type(), 0, args)
	if err != nil {
		return nil, err
	}
	return SplitResults(mv.Type(), mv.Call(in))
}
