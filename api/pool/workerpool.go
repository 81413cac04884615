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

// Package pool provides a lightweight worker pool for asynchronous tasks
// submitted by advice, such as debug logging.
// The pool reuses idle worker goroutines and retires workers that have been
// idle longer than maxIdleWorkerDuration.
package pool

import (
	"errors"
	"sync"
	"time"
)

var ErrPoolStopped = errors.New("the worker pool is stopped")

const maxIdleWorkerDuration = 10 * time.Second

// WorkerPool serves incoming tasks via a pool of reusable worker goroutines.
// 协程池 通过可复用的工作协程池执行提交的任务。
type WorkerPool struct {
	// MaxWorkersCount is the upper bound of concurrently alive workers.
	MaxWorkersCount int

	lock         sync.Mutex
	workersCount int
	mustStop     bool
	ready        []*workerChan
	stopCh       chan struct{}
	workerPool   sync.Pool
}

type workerChan struct {
	lastUseTime time.Time
	ch          chan func()
}

// Start launches the idle-worker reaper. It must be called before Submit.
func (wp *WorkerPool) Start() {
	if wp.stopCh != nil {
		return
	}
	wp.stopCh = make(chan struct{})
	stopCh := wp.stopCh
	wp.workerPool.New = func() interface{} {
		return &workerChan{ch: make(chan func(), 1)}
	}
	go func() {
		var scratch []*workerChan
		for {
			wp.clean(&scratch)
			select {
			case <-stopCh:
				return
			default:
				time.Sleep(maxIdleWorkerDuration)
			}
		}
	}()
}

// Release stops the pool. Tasks already started keep running; idle workers exit.
func (wp *WorkerPool) Release() {
	if wp.stopCh == nil {
		return
	}
	close(wp.stopCh)
	wp.stopCh = nil

	wp.lock.Lock()
	for _, ch := range wp.ready {
		close(ch.ch)
	}
	wp.ready = nil
	wp.mustStop = true
	wp.lock.Unlock()
}

// Submit hands the task to an idle worker, spawning one when below the limit.
// 往协程池提交一个任务，如果协程池满返回错误。
func (wp *WorkerPool) Submit(task func()) error {
	ch := wp.getCh()
	if ch == nil {
		return ErrPoolStopped
	}
	ch.ch <- task
	return nil
}

func (wp *WorkerPool) clean(scratch *[]*workerChan) {
	criticalTime := time.Now().Add(-maxIdleWorkerDuration)

	wp.lock.Lock()
	ready := wp.ready
	n := len(ready)
	i := 0
	for i < n && ready[i].lastUseTime.Before(criticalTime) {
		i++
	}
	*scratch = append((*scratch)[:0], ready[:i]...)
	if i > 0 {
		m := copy(ready, ready[i:])
		for j := m; j < n; j++ {
			ready[j] = nil
		}
		wp.ready = ready[:m]
	}
	wp.lock.Unlock()

	for _, ch := range *scratch {
		close(ch.ch)
	}
}

func (wp *WorkerPool) getCh() *workerChan {
	var ch *workerChan
	createWorker := false

	wp.lock.Lock()
	if wp.mustStop {
		wp.lock.Unlock()
		return nil
	}
	ready := wp.ready
	n := len(ready) - 1
	if n < 0 {
		if wp.workersCount < wp.MaxWorkersCount {
			createWorker = true
			wp.workersCount++
		}
	} else {
		ch = ready[n]
		ready[n] = nil
		wp.ready = ready[:n]
	}
	wp.lock.Unlock()

	if ch == nil {
		if !createWorker {
			return nil
		}
		vch := wp.workerPool.Get()
		ch = vch.(*workerChan)
		go func() {
			wp.workerFunc(ch)
			wp.workerPool.Put(vch)
		}()
	}
	return ch
}

func (wp *WorkerPool) release(ch *workerChan) bool {
	ch.lastUseTime = time.Now()
	wp.lock.Lock()
	if wp.mustStop {
		wp.lock.Unlock()
		return false
	}
	wp.ready = append(wp.ready, ch)
	wp.lock.Unlock()
	return true
}

func (wp *WorkerPool) workerFunc(ch *workerChan) {
	for task := range ch.ch {
		if task == nil {
			break
		}
		task()
		if !wp.release(ch) {
			break
		}
	}
	wp.lock.Lock()
	wp.workersCount--
	wp.lock.Unlock()
}
