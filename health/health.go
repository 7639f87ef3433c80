// Package health 提供常驻模式下的健康检查：记录最近一次运行结果并通过 HTTP 暴露.
package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// Checker 定义健康检查函数原型。
type Checker func() error

// ErrNoRunYet 尚未完成任何一次运行。
var ErrNoRunYet = errors.New("no run completed yet")

// Status 记录最近一次运行的结果，可被多个 goroutine 并发读写。
type Status struct {
	mu   sync.RWMutex
	err  error
	at   time.Time
	runs int
}

// Record 记录一次运行的结果。
func (s *Status) Record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.at = time.Now()
	s.runs++
}

// Last 返回最近一次运行的完成时间、累计运行次数与错误。
func (s *Status) Last() (at time.Time, runs int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.at, s.runs, s.err
}

// Checker 返回基于最近一次运行结果的检查函数：尚未运行或最近一次失败均视为不健康。
func (s *Status) Checker() Checker {
	return func() error {
		_, runs, err := s.Last()
		if runs == 0 {
			return ErrNoRunYet
		}
		return err
	}
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler 依次执行所有检查，全部通过返回 200，否则返回 503，响应体为 JSON.
func Handler(checkers map[string]Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		rep := report{Status: "ok", Checks: make(map[string]string, len(checkers))}
		code := http.StatusOK
		for name, check := range checkers {
			if err := check(); err != nil {
				rep.Checks[name] = err.Error()
				rep.Status = "fail"
				code = http.StatusServiceUnavailable
				continue
			}
			rep.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(rep)
	})
}
