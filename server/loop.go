package server

import (
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jkrings/larch/lib/ds"
	"github.com/jkrings/larch/lib/worker"
	"github.com/jkrings/larch/proto"
)

// readBatchSize bounds how many bytes one read burst may pull in.
const readBatchSize = 64 * 1024

// --------------------------------------------------------------------------
// Event Loop
// --------------------------------------------------------------------------

// Loop is the single-goroutine request engine. One iteration (a tick)
// destroys flagged connections, polls for readiness, drains I/O and
// runs the two timer queues: idle connections and key TTLs.
type Loop struct {
	config Config
	db     *DB
	pool   *worker.Pool

	ln     net.Listener
	lnFile *os.File
	lfd    int

	conns map[int]*Conn
	idle  ds.ListNode // sentinel, oldest connection at the head

	start   time.Time
	readBuf []byte
	log     *Logger

	// poll scratch, reused across ticks
	pollFds   []unix.PollFd
	pollConns []*Conn
}

// NewLoop binds the listener and builds an empty keyspace.
func NewLoop(config Config) (*Loop, error) {
	ln, file, err := newListener(config)
	if err != nil {
		return nil, err
	}
	pool := worker.NewPool(config.Workers)

	l := &Loop{
		config:  config,
		db:      NewDB(pool, config.LargeContainer),
		pool:    pool,
		ln:      ln,
		lnFile:  file,
		lfd:     int(file.Fd()),
		conns:   make(map[int]*Conn),
		start:   time.Now(),
		readBuf: make([]byte, readBatchSize),
		log:     GetLogger("loop"),
	}
	l.idle.Init(nil)
	return l, nil
}

// Addr returns the bound listener address.
func (l *Loop) Addr() net.Addr { return l.ln.Addr() }

// Pool returns the background destruction pool.
func (l *Loop) Pool() *worker.Pool { return l.pool }

// nowMs is the loop's monotonic millisecond clock.
func (l *Loop) nowMs() int64 { return time.Since(l.start).Milliseconds() }

// Run drives ticks until poll fails with an error other than EINTR.
func (l *Loop) Run() error {
	l.log.Infof("serving on %s", l.ln.Addr())
	for {
		if err := l.tick(); err != nil {
			return err
		}
	}
}

func (l *Loop) tick() error {
	// destroy connections flagged during the previous iteration
	for _, c := range l.conns {
		if c.wantClose {
			l.closeConn(c)
		}
	}

	// build the readiness set: the listener plus every live connection
	l.pollFds = l.pollFds[:0]
	l.pollConns = l.pollConns[:0]
	l.pollFds = append(l.pollFds, unix.PollFd{Fd: int32(l.lfd), Events: unix.POLLIN})
	l.pollConns = append(l.pollConns, nil)
	for _, c := range l.conns {
		var events int16 = unix.POLLERR
		if c.wantRead {
			events |= unix.POLLIN
		}
		if c.wantWrite {
			events |= unix.POLLOUT
		}
		l.pollFds = append(l.pollFds, unix.PollFd{Fd: int32(c.fd), Events: events})
		l.pollConns = append(l.pollConns, c)
	}

	if _, err := unix.Poll(l.pollFds, l.nextTimeoutMs(l.nowMs())); err != nil {
		if err == unix.EINTR {
			// interrupted by a signal, nothing is closed, just re-poll
			return nil
		}
		return fmt.Errorf("poll: %w", err)
	}

	// one timestamp for I/O stamping and both timer queues
	now := l.nowMs()

	// drain events
	for i, pfd := range l.pollFds {
		revents := pfd.Revents
		if revents == 0 {
			continue
		}
		if i == 0 {
			l.acceptNew(now)
			continue
		}
		c := l.pollConns[i]
		if revents&unix.POLLIN != 0 {
			l.handleRead(c, now)
		}
		if revents&unix.POLLOUT != 0 && !c.wantClose {
			l.handleWrite(c, now)
		}
		if revents&unix.POLLERR != 0 {
			c.wantClose = true
		}
	}

	// timers
	l.processIdle(now)
	if expired := l.db.expireDue(now, l.config.MaxExpireWorks); expired > 0 {
		keysExpired.Add(expired)
		l.log.Debugf("expired %d keys", expired)
	}
	return nil
}

// nextTimeoutMs computes the poll timeout from the nearest idle and TTL
// deadlines: -1 (wait indefinitely) when both queues are empty.
func (l *Loop) nextTimeoutMs(now int64) int {
	timeout := int64(-1)
	if !l.idle.Empty() {
		c := l.idle.Next().Owner.(*Conn)
		timeout = max(c.lastActiveMs+l.config.IdleTimeoutMs-now, 0)
	}
	if deadline, ok := l.db.nextDeadline(); ok {
		d := max(deadline-now, 0)
		if timeout < 0 || d < timeout {
			timeout = d
		}
	}
	if timeout < 0 {
		return -1
	}
	return int(timeout)
}

// --------------------------------------------------------------------------
// Connection Lifecycle
// --------------------------------------------------------------------------

// acceptNew drains the listener backlog.
func (l *Loop) acceptNew(now int64) {
	for {
		fd, _, err := unix.Accept4(l.lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			if err == unix.EINTR {
				continue
			}
			// listener errors are logged, the loop carries on
			l.log.Errorf("accept error: %v", err)
			return
		}
		if l.config.TCPNoDelay {
			if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
				l.log.Warningf("failed to set TCP_NODELAY on fd=%d: %v", fd, err)
			}
		}
		c := newConn(fd, now)
		l.conns[fd] = c
		l.idle.InsertBefore(&c.idle)
		connectionsAccepted.Inc()
		l.log.Debugf("accepted connection fd=%d", fd)
	}
}

func (l *Loop) closeConn(c *Conn) {
	c.idle.Detach()
	delete(l.conns, c.fd)
	unix.Close(c.fd)
	connectionsClosed.Inc()
	l.log.Debugf("closed connection fd=%d", c.fd)
}

// touch moves the connection to the tail of the idle queue, keeping the
// queue ordered by last activity.
func (l *Loop) touch(c *Conn, now int64) {
	c.lastActiveMs = now
	c.idle.Detach()
	l.idle.InsertBefore(&c.idle)
}

// --------------------------------------------------------------------------
// I/O State Machine
// --------------------------------------------------------------------------

// handleRead performs one read burst, parses every complete pipelined
// request and appends the framed responses.
func (l *Loop) handleRead(c *Conn, now int64) {
	n, err := unix.Read(c.fd, l.readBuf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return
		}
		l.log.Errorf("read error on fd=%d: %v", c.fd, err)
		c.wantClose = true
		return
	}
	if n == 0 {
		if c.incoming.Len() > 0 {
			// EOF in the middle of a request
			l.log.Errorf("unexpected EOF on fd=%d", c.fd)
		}
		c.wantClose = true
		return
	}
	c.incoming.Append(l.readBuf[:n])
	l.touch(c, now)

	for {
		args, consumed, err := proto.ParseRequest(c.incoming.Bytes())
		if err != nil {
			l.log.Errorf("protocol error on fd=%d: %v", c.fd, err)
			c.wantClose = true
			return
		}
		if consumed == 0 {
			break
		}
		requestsParsed.Inc()
		result := Dispatch(l.db, args, now)
		c.outgoing.data = proto.AppendResponse(c.outgoing.data, result)
		c.incoming.Consume(consumed)
	}

	if c.outgoing.Len() > 0 {
		c.wantWrite = true
		// the socket is usually writable right now, skip a poll round trip
		l.handleWrite(c, now)
	}
}

// handleWrite drains the outgoing buffer as far as the socket allows.
func (l *Loop) handleWrite(c *Conn, now int64) {
	if c.outgoing.Len() == 0 {
		c.wantWrite = false
		return
	}
	n, err := unix.Write(c.fd, c.outgoing.Bytes())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return
		}
		l.log.Errorf("write error on fd=%d: %v", c.fd, err)
		c.wantClose = true
		return
	}
	c.outgoing.Consume(n)
	l.touch(c, now)
	if c.outgoing.Len() == 0 {
		c.wantWrite = false
	}
}

// --------------------------------------------------------------------------
// Timers
// --------------------------------------------------------------------------

// processIdle destroys connections from the head of the idle queue for
// as long as they are past the timeout.
func (l *Loop) processIdle(now int64) {
	for !l.idle.Empty() {
		c := l.idle.Next().Owner.(*Conn)
		if now-c.lastActiveMs <= l.config.IdleTimeoutMs {
			break
		}
		l.log.Infof("idle timeout on fd=%d", c.fd)
		connectionsIdleDrop.Inc()
		l.closeConn(c)
	}
}
