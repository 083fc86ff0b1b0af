/*
Package bus offers in-process fan-out of values to keyed listeners. Runtime
events and verification notifications travel through it.
*/
package bus

import (
	"container/list"
	"sync"

	"github.com/findy-network/campus-agent/agent/utils"
	"github.com/golang/glog"
)

// Station broadcasts values of type T to all of its listeners. Every listener
// has its own unbounded FIFO buffer which is drained to the listener's channel
// by a pump goroutine, so Broadcast never blocks on a slow listener and the
// order of values is kept per listener.
type Station[T any] struct {
	lk        sync.Mutex
	listeners map[string]*listener[T]
}

// New creates an empty Station.
func New[T any]() *Station[T] {
	return &Station[T]{listeners: make(map[string]*listener[T])}
}

type listener[T any] struct {
	ch   chan T
	done chan struct{}

	lk     sync.Mutex
	cond   *sync.Cond
	buf    *list.List
	closed bool
}

func newListener[T any]() *listener[T] {
	l := &listener[T]{
		ch:   make(chan T),
		done: make(chan struct{}),
		buf:  list.New(),
	}
	l.cond = sync.NewCond(&l.lk)
	go l.pump()
	return l
}

func (l *listener[T]) pump() {
	defer close(l.ch)
	for {
		l.lk.Lock()
		for l.buf.Len() == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.lk.Unlock()
			return
		}
		v := l.buf.Remove(l.buf.Front()).(T)
		l.lk.Unlock()

		select {
		case l.ch <- v:
		case <-l.done:
			return
		}
	}
}

func (l *listener[T]) push(v T) {
	l.lk.Lock()
	if l.closed {
		l.lk.Unlock()
		return
	}
	l.buf.PushBack(v)
	l.lk.Unlock()
	l.cond.Signal()
}

func (l *listener[T]) close() {
	l.lk.Lock()
	if l.closed {
		l.lk.Unlock()
		return
	}
	l.closed = true
	close(l.done)
	l.lk.Unlock()
	l.cond.Broadcast()
}

// AddListener registers a listener by key and returns its channel. An
// existing listener with the same key is replaced and its channel closed.
func (s *Station[T]) AddListener(key string) <-chan T {
	l := newListener[T]()

	s.lk.Lock()
	old, alreadyExists := s.listeners[key]
	s.listeners[key] = l
	s.lk.Unlock()

	if alreadyExists {
		glog.Warningln("listener", key, "replaced")
		old.close()
	}
	glog.V(4).Infoln("listener ADD:", key)
	return l.ch
}

// RmListener removes the listener and closes its channel. Values still
// buffered for it are dropped.
func (s *Station[T]) RmListener(key string) {
	s.lk.Lock()
	l, ok := s.listeners[key]
	delete(s.listeners, key)
	s.lk.Unlock()

	if ok {
		glog.V(4).Infoln("listener RM:", key)
		l.close()
	}
}

// Subscribe adds a listener with a generated key. The returned func removes
// it.
func (s *Station[T]) Subscribe() (<-chan T, func()) {
	key := utils.UUID()
	ch := s.AddListener(key)
	return ch, func() { s.RmListener(key) }
}

// Broadcast queues v to every current listener and returns how many there
// were.
func (s *Station[T]) Broadcast(v T) int {
	// copy listeners that we don't keep the lock while pushing
	s.lk.Lock()
	ls := make([]*listener[T], 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lk.Unlock()

	for _, l := range ls {
		l.push(v)
	}
	if len(ls) == 0 {
		glog.V(5).Infoln("there are no one to listen us!")
	}
	return len(ls)
}

// Len returns the number of listeners.
func (s *Station[T]) Len() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return len(s.listeners)
}

// Close removes all listeners.
func (s *Station[T]) Close() {
	s.lk.Lock()
	ls := s.listeners
	s.listeners = make(map[string]*listener[T])
	s.lk.Unlock()

	for _, l := range ls {
		l.close()
	}
}
