package console

import (
	"context"
	"fmt"
	"time"

	"spreadwatch/internal/application/port"
)

type Sink struct{}

func NewSink() port.Sink { return &Sink{} }

func (s *Sink) Name() string { return "console" }

// Send 告警前后各留一个空行，和滚动日志隔开
func (s *Sink) Send(ctx context.Context, title, body string) error {
	fmt.Print("\n")
	fmt.Printf("%s %s\n%s\n", time.Now().Format("2006-01-02 15:04:05"), title, body)
	fmt.Print("\n")
	return nil
}
