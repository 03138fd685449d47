package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Topic 所有分析事件共用一个主题，订阅方按 event_type 过滤
// 同一订阅者收到的事件顺序不保证与发布顺序一致
const Topic = "dagsched.analysis"

// ErrBusClosed 事件总线已关闭
var ErrBusClosed = errors.New("事件总线已关闭")

// Publisher 事件发布方
type Publisher interface {
	Publish(ctx context.Context, event *AnalysisEvent) error
}

// Bus 基于 watermill gochannel 的进程内事件总线（对外导出）
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// BusOption 事件总线选项
type BusOption func(*busOptions)

type busOptions struct {
	debug  bool
	trace  bool
	buffer int64
}

// WithDebug 打开 watermill 调试日志
func WithDebug(debug, trace bool) BusOption {
	return func(o *busOptions) {
		o.debug = debug
		o.trace = trace
	}
}

// WithBuffer 订阅通道缓冲区大小
func WithBuffer(n int64) BusOption {
	return func(o *busOptions) {
		o.buffer = n
	}
}

// NewBus 创建事件总线
func NewBus(opts ...BusOption) *Bus {
	options := &busOptions{buffer: 64}
	for _, opt := range opts {
		opt(options)
	}

	logger := watermill.NewStdLogger(options.debug, options.trace)
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            options.buffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)
	return &Bus{pubsub: pubsub, logger: logger}
}

// Publish 发布事件
func (b *Bus) Publish(ctx context.Context, event *AnalysisEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// 序列化事件
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	// 创建 Watermill 消息
	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("run_id", event.RunID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅事件，types 为空时接收全部类型
// ctx 结束或总线关闭时返回的通道被关闭
func (b *Bus) Subscribe(ctx context.Context, types ...EventType) (<-chan *AnalysisEvent, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrBusClosed
	}

	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("订阅事件失败: %w", err)
	}

	filter := make(map[EventType]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}

	out := make(chan *AnalysisEvent, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var event AnalysisEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Printf("⚠️ [事件总线] 无法解析事件: MessageID=%s, Error=%v", msg.UUID, err)
				msg.Ack()
				continue
			}
			msg.Ack()
			if len(filter) > 0 && !filter[event.Type] {
				continue
			}
			select {
			case out <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close 关闭事件总线，所有订阅通道随之关闭
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *AnalysisEvent) error { return nil }
