package telegram

import (
	"sync"
)

// task はディスパッチャが直列に実行する作業単位。
type task func()

// Dispatcher は受信イベントをユーザー単位で直列化して実行する。
// 同一ユーザーのイベントは到着順に1件ずつ処理され、メッセージの保存順と
// 利用量の計上を正しく保つ。異なるユーザー同士は semaphore の上限まで並列に動く。
// ユーザーのキューが空になったら対応するゴルーチンは破棄される。
type Dispatcher struct {
	mu     sync.Mutex
	queues map[int64]chan task
	wg     sync.WaitGroup
	sem    chan struct{}

	queueSize int
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewDispatcher(maxConcurrency int) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Dispatcher{
		queues:    map[int64]chan task{},
		sem:       make(chan struct{}, maxConcurrency),
		queueSize: 16,
	}
}

// Submit はユーザーのキューに作業を追加する。キューが無ければ作り、
// 処理ゴルーチンを起動する。キューが満杯の間はブロックする。
func (d *Dispatcher) Submit(userID int64, fn task) {
	d.mu.Lock()
	q, ok := d.queues[userID]
	if !ok {
		q = make(chan task, d.queueSize)
		d.queues[userID] = q
		d.wg.Add(1)
		go d.drain(userID, q)
	}
	// ロックを持ったまま積む。drainはキューが空の時しかロックを取らないため、
	// 満杯で待つ間もdrain側の消費は止まらない。
	q <- fn
	d.mu.Unlock()
}

// drain はキューの作業を1件ずつ実行し、空になったらキューを片付けて終了する。
func (d *Dispatcher) drain(userID int64, q chan task) {
	defer d.wg.Done()

	for {
		select {
		case fn := <-q:
			d.run(fn)
		default:
			// 空に見えてもSubmitと競合している可能性があるので、ロック下で再確認する。
			d.mu.Lock()
			select {
			case fn := <-q:
				d.mu.Unlock()
				d.run(fn)
			default:
				delete(d.queues, userID)
				d.mu.Unlock()
				return
			}
		}
	}
}

func (d *Dispatcher) run(fn task) {
	d.sem <- struct{}{}
	defer func() { <-d.sem }()
	fn()
}

// Wait は投入済みの全作業が完了するまでブロックする。
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// activeQueues は現存するユーザーキューの数を返す。
func (d *Dispatcher) activeQueues() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
