package ws

import (
	"hash/fnv"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout 广播工作池：把同一份序列化帧推进一组连接的发送队列。
// 按 key（roomId）哈希固定到同一个 worker，保证同一房间的事件
// 入队顺序 == 发射顺序；不同房间之间无顺序承诺。
type Fanout struct {
	workers []chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{workers: make([]chan fanoutJob, workers)}
	for i := range f.workers {
		ch := make(chan fanoutJob, queue)
		f.workers[i] = ch
		go func() {
			for job := range ch {
				for _, c := range job.conns {
					c.enqueue(job.payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(key string, conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	f.workers[h.Sum32()%uint32(len(f.workers))] <- fanoutJob{conns: conns, payload: payload}
}
