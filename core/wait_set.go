package core

import "reflect"

// waitSet holds dependency-free wait tasks until their signal channel
// closes. Two modes:
//
//   - dedicated: one goroutine multiplexes every registered channel with
//     reflect.Select and re-injects tasks the instant they fire.
//   - polling: workers check the set non-blockingly before parking, and
//     park with a bounded deadline while the set is non-empty.
type waitSet struct {
	exec      *Executor
	dedicated bool

	mu      SlimMutex
	tasks   []*Task
	stopped bool

	// kick makes the dedicated loop rebuild its select set after a
	// register, or re-check stopped. Buffered so senders never block.
	kick chan struct{}
	done chan struct{}
}

func newWaitSet(e *Executor, dedicated bool) *waitSet {
	ws := &waitSet{exec: e, dedicated: dedicated}
	if dedicated {
		ws.kick = make(chan struct{}, 1)
		ws.done = make(chan struct{})
	}
	return ws
}

func (ws *waitSet) start() {
	if ws.dedicated {
		go ws.loop()
	}
}

// register adds a wait task whose dependencies are all satisfied. After the
// set has stopped the task is discarded instead; its scope accounting still
// runs.
func (ws *waitSet) register(task *Task) {
	ws.mu.Lock()
	if ws.stopped {
		ws.mu.Unlock()
		var list TaskList
		list.PushBack(task)
		list.Discard()
		return
	}
	ws.tasks = append(ws.tasks, task)
	ws.mu.Unlock()

	if ws.dedicated {
		select {
		case ws.kick <- struct{}{}:
		default:
		}
		return
	}
	// Polling mode: wake everyone so parked workers re-read the set size
	// and switch to bounded parks.
	for _, w := range ws.exec.workers {
		w.wake.Post(1)
	}
}

func (ws *waitSet) size() int {
	ws.mu.Lock()
	n := len(ws.tasks)
	ws.mu.Unlock()
	return n
}

// needsPolling reports whether workers must drive the set themselves.
func (ws *waitSet) needsPolling() bool {
	return !ws.dedicated && ws.size() > 0
}

// pollInline non-blockingly collects every task whose signal has fired.
// Used by workers in polling mode; the dedicated loop owns delivery
// otherwise.
func (ws *waitSet) pollInline() TaskList {
	var signaled TaskList
	if ws.dedicated {
		return signaled
	}
	ws.mu.Lock()
	remaining := ws.tasks[:0]
	for _, task := range ws.tasks {
		select {
		case <-task.signal:
			signaled.PushBack(task)
		default:
			remaining = append(remaining, task)
		}
	}
	ws.tasks = remaining
	ws.mu.Unlock()
	return signaled
}

func (ws *waitSet) loop() {
	for {
		ws.mu.Lock()
		stopped := ws.stopped
		snapshot := append([]*Task(nil), ws.tasks...)
		ws.mu.Unlock()
		if stopped {
			close(ws.done)
			return
		}

		cases := make([]reflect.SelectCase, 0, len(snapshot)+1)
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(ws.kick),
		})
		for _, task := range snapshot {
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(task.signal),
			})
		}
		chosen, _, _ := reflect.Select(cases)
		if chosen == 0 {
			continue
		}
		task := snapshot[chosen-1]
		ws.remove(task)
		ws.exec.dispatchTask(task)
	}
}

func (ws *waitSet) remove(task *Task) {
	ws.mu.Lock()
	for i, t := range ws.tasks {
		if t == task {
			ws.tasks = append(ws.tasks[:i], ws.tasks[i+1:]...)
			break
		}
	}
	ws.mu.Unlock()
}

// stop shuts the set down and discards every still-registered task.
func (ws *waitSet) stop() {
	ws.mu.Lock()
	if ws.stopped {
		ws.mu.Unlock()
		return
	}
	ws.stopped = true
	orphans := ws.tasks
	ws.tasks = nil
	ws.mu.Unlock()

	if ws.dedicated {
		select {
		case ws.kick <- struct{}{}:
		default:
		}
		<-ws.done
	}

	var list TaskList
	for _, task := range orphans {
		list.PushBack(task)
	}
	list.Discard()
}
