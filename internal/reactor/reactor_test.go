package reactor

import (
	"bufio"
	"net"
	"testing"
	"time"

	"reactorkv/internal/engine"
	"reactorkv/internal/stats"
	"reactorkv/internal/store"
	"reactorkv/internal/timer"
)

// startTestReactor brings up a Reactor on an ephemeral loopback port and
// runs it in a background goroutine for the duration of the test.
func startTestReactor(t *testing.T) string {
	t.Helper()

	wheel, err := timer.New()
	if err != nil {
		t.Skipf("timerfd unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { wheel.Close() })

	counters := stats.New()
	eng := engine.New(store.New(), nil, counters)
	r, err := New("127.0.0.1:0", eng, wheel, counters)
	if err != nil {
		t.Skipf("epoll unavailable in this environment: %v", err)
	}

	addr, err := r.Addr()
	if err != nil {
		t.Fatalf("Addr: %v", err)
	}

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	t.Cleanup(func() {
		r.Shutdown()
		<-done
	})

	return addr
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 20; i++ {
		conn, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendAndRead(t *testing.T, conn net.Conn, r *bufio.Reader, cmd string) string {
	t.Helper()
	if _, err := conn.Write([]byte(cmd)); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := readLine(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return line
}

// readLine reads one CRLF-terminated reply line and strips the terminator;
// a bulk string's payload line is read with a second call.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return line[:len(line)-2], nil // trim trailing \r\n
}

func TestPingPong(t *testing.T) {
	addr := startTestReactor(t)
	conn, reader := dial(t, addr)

	got := sendAndRead(t, conn, reader, "*1\r\n$4\r\nPING\r\n")
	if got != "+PONG" {
		t.Fatalf("PING reply = %q, want +PONG", got)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	addr := startTestReactor(t)
	conn, reader := dial(t, addr)

	got := sendAndRead(t, conn, reader, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	if got != "+OK" {
		t.Fatalf("SET reply = %q, want +OK", got)
	}

	got = sendAndRead(t, conn, reader, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	if got != "$1" {
		t.Fatalf("GET length line = %q, want $1", got)
	}
	payload, _ := readLine(reader)
	if payload != "v" {
		t.Fatalf("GET payload = %q, want v", payload)
	}
}

func TestMultiExecQueuesAndRunsAtomically(t *testing.T) {
	addr := startTestReactor(t)
	conn, reader := dial(t, addr)

	if got := sendAndRead(t, conn, reader, "*1\r\n$5\r\nMULTI\r\n"); got != "+OK" {
		t.Fatalf("MULTI reply = %q, want +OK", got)
	}
	if got := sendAndRead(t, conn, reader, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"); got != "+QUEUED" {
		t.Fatalf("queued SET reply = %q, want +QUEUED", got)
	}
	if got := sendAndRead(t, conn, reader, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"); got != "+QUEUED" {
		t.Fatalf("queued GET reply = %q, want +QUEUED", got)
	}

	got := sendAndRead(t, conn, reader, "*1\r\n$4\r\nEXEC\r\n")
	if got != "*2" {
		t.Fatalf("EXEC reply array header = %q, want *2", got)
	}
	if setReply, _ := readLine(reader); setReply != "+OK" {
		t.Fatalf("EXEC[0] = %q, want +OK", setReply)
	}
	if getLenLine, _ := readLine(reader); getLenLine != "$1" {
		t.Fatalf("EXEC[1] length line = %q, want $1", getLenLine)
	}
	if payload, _ := readLine(reader); payload != "v" {
		t.Fatalf("EXEC[1] payload = %q, want v", payload)
	}
}

func TestExecWithoutMultiIsAnError(t *testing.T) {
	addr := startTestReactor(t)
	conn, reader := dial(t, addr)

	got := sendAndRead(t, conn, reader, "*1\r\n$4\r\nEXEC\r\n")
	if got != "-ERR EXEC without MULTI" {
		t.Fatalf("reply = %q, want -ERR EXEC without MULTI", got)
	}
}
