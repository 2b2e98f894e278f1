package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FrameHandler processes one inbound frame tagged with its peer identity
// (the source address in "host:port" form). Called from the transport's
// read goroutine; implementations must be safe for that.
type FrameHandler func(identity string, frame []int16)

// UDPTransport moves raw PCM frames over a single UDP socket: datagrams in
// from any peer, personalized mixes back out. It satisfies the engine's
// Sender interface.
type UDPTransport struct {
	conn     net.PacketConn
	frameLen int
	handler  FrameHandler

	// Source addresses observed by the read loop, so Send resolves a peer
	// identity without a DNS round trip on the mix path.
	mu    sync.RWMutex
	addrs map[string]net.Addr

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewUDPTransport opens a UDP socket on listenAddr for frames of frameLen
// samples. The read loop does not start until Listen is called with a
// handler.
func NewUDPTransport(listenAddr string, frameLen int) (*UDPTransport, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	logrus.WithFields(logrus.Fields{
		"listen_addr": conn.LocalAddr().String(),
		"frame_len":   frameLen,
	}).Info("UDP frame transport listening")

	return &UDPTransport{
		conn:     conn,
		frameLen: frameLen,
		addrs:    make(map[string]net.Addr),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// LocalAddr returns the bound socket address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Listen starts the inbound read loop, delivering each well-formed frame to
// handler. Malformed datagrams are dropped with a log line.
func (t *UDPTransport) Listen(handler FrameHandler) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()

	t.wg.Add(1)
	go t.readLoop()
}

func (t *UDPTransport) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, t.frameLen*2+1)
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		// Bounded read so shutdown is observed promptly.
		_ = t.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := t.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-t.ctx.Done():
				return
			default:
			}
			logrus.WithField("error", err.Error()).Warn("UDP read failed")
			continue
		}

		frame, err := DecodeFrame(buf[:n], t.frameLen)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"from":  addr.String(),
				"bytes": n,
			}).Debug("Dropped malformed datagram")
			continue
		}

		identity := addr.String()
		t.mu.Lock()
		t.addrs[identity] = addr
		handler := t.handler
		t.mu.Unlock()

		if handler != nil {
			handler(identity, frame)
		}
	}
}

// Send transmits one composed frame to the peer identity. The write is a
// single bounded syscall; a partial write returns ErrShortWrite.
func (t *UDPTransport) Send(identity string, frame []int16) error {
	addr, err := t.resolve(identity)
	if err != nil {
		return err
	}

	data := EncodeFrame(frame)
	n, err := t.conn.WriteTo(data, addr)
	if err != nil {
		return fmt.Errorf("send to %s: %w", identity, err)
	}
	if n < len(data) {
		return fmt.Errorf("send to %s: wrote %d of %d bytes: %w", identity, n, len(data), ErrShortWrite)
	}
	return nil
}

// SendRaw writes an arbitrary payload to a resolved address, used for the
// directory heartbeat that shares the mixer's socket.
func (t *UDPTransport) SendRaw(addrStr string, payload []byte) error {
	addr, err := net.ResolveUDPAddr("udp", addrStr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addrStr, err)
	}
	n, err := t.conn.WriteTo(payload, addr)
	if err != nil {
		return err
	}
	if n < len(payload) {
		return ErrShortWrite
	}
	return nil
}

// resolve maps a peer identity back to a UDP address, preferring the
// address cached by the read loop.
func (t *UDPTransport) resolve(identity string) (net.Addr, error) {
	t.mu.RLock()
	addr, ok := t.addrs[identity]
	t.mu.RUnlock()
	if ok {
		return addr, nil
	}

	udpAddr, err := net.ResolveUDPAddr("udp", identity)
	if err != nil {
		return nil, fmt.Errorf("resolve peer %s: %w", identity, err)
	}
	return udpAddr, nil
}

// Close shuts down the read loop and the socket.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	err := t.conn.Close()
	t.wg.Wait()

	logrus.Info("UDP frame transport closed")
	return err
}
