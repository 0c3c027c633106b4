// Command taskcore-demo demonstrates the fundamentals of the
// scheduling core: pool lifecycle, a short-task worker, and an idle
// (delayed) task.
//
// Run with: go run ./cmd/taskcore-demo
package main

import (
	"fmt"
	"time"

	taskcore "github.com/corelane/taskcore"
)

func main() {
	pool, err := taskcore.NewTaskThreadPool(
		taskcore.WithShortTaskThreads(2),
		taskcore.WithBlockingTaskThreads(1),
	)
	if err != nil {
		panic(err)
	}
	if err := pool.AddThreads(); err != nil {
		panic(err)
	}
	defer func() {
		if err := pool.RemoveThreads(); err != nil {
			fmt.Printf("shutdown: %v\n", err)
		}
	}()

	done := make(chan struct{})

	// A short task: prints the events it observes, then quiesces.
	var t *taskcore.Task
	t = taskcore.NewTask(pool, func(task *taskcore.Task, events taskcore.EventMask) int64 {
		fmt.Printf("task: observed events=%#x\n", events)
		if events&taskcore.EventKill != 0 {
			close(done)
			return -1
		}
		return 0
	})
	t.SetName("demo-task")
	t.Signal(taskcore.EventStart)

	idleThread, err := taskcore.NewIdleTaskThread()
	if err != nil {
		panic(err)
	}
	if err := idleThread.Initialize(); err != nil {
		panic(err)
	}
	defer idleThread.Release()

	idle := taskcore.NewIdleTask(pool, idleThread, func(task *taskcore.Task, events taskcore.EventMask) int64 {
		fmt.Println("idle: fired")
		t.Signal(taskcore.EventKill)
		return 0
	})
	idle.SetIdleTimer(50)

	select {
	case <-done:
	case <-time.After(time.Second):
		fmt.Println("demo: timed out waiting for shutdown")
	}
}
