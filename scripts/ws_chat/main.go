// Command ws_chat is a terminal chat over a running client's control API.
//
//	/join <channel> [key]   join a channel and make it current
//	/leave [channel]        leave a channel
//	/msg <user> <text>      private message
//	/away, /back            toggle the away flag
//
// Any other line is said in the current channel.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	transporthttp "github.com/vovakirdan/lobbyclient/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://127.0.0.1:8300/ws", "control API WebSocket address")
	token := flag.String("token", "", "control API token")
	channel := flag.String("channel", "main", "channel to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	url := *addr
	if *token != "" {
		url += "?token=" + *token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &chat{conn: conn, channel: *channel}
	c.send(ctx, transporthttp.CommandRequest{Kind: "join_channel", Channel: c.channel})

	fmt.Printf("Connected to %s, chatting in #%s\n", *addr, c.channel)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	c.writeLoop(ctx)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

type chat struct {
	conn    *websocket.Conn
	channel string
	ref     int
}

func (c *chat) send(ctx context.Context, req transporthttp.CommandRequest) {
	c.ref++
	cmd := transporthttp.WSCommand{Ref: strconv.Itoa(c.ref), CommandRequest: req}
	if err := wsjson.Write(ctx, c.conn, cmd); err != nil {
		log.Printf("send: %v", err)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame transporthttp.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch frame.Type {
		case transporthttp.FrameSession:
			fmt.Printf("* session %s as %s\n", frame.Session.Phase, frame.Session.Username)
		case transporthttp.FrameError:
			fmt.Printf("! %s (%s)\n", frame.Error.Error, frame.Error.Code)
		case transporthttp.FrameDropped:
			fmt.Printf("! %d events dropped\n", frame.Dropped)
		case transporthttp.FrameEvent:
			printEvent(frame.Event)
		}
	}
}

func printEvent(ev *transporthttp.EventResponse) {
	switch ev.Kind {
	case "said":
		fmt.Printf("[#%s] %s: %s\n", ev.Channel, ev.From, ev.Text)
	case "said_private":
		fmt.Printf("[pm] %s: %s\n", ev.From, ev.Text)
	case "server_msg":
		fmt.Printf("* %s\n", ev.Text)
	case "ring":
		fmt.Printf("* %s is ringing you\n", ev.From)
	case "channel_joined":
		fmt.Printf("* joined #%s\n", ev.Channel)
	case "join_channel_failed":
		fmt.Printf("! cannot join #%s: %s\n", ev.Channel, ev.Info)
	case "connected":
		if ev.Connected != nil && !*ev.Connected {
			fmt.Printf("* disconnected %s\n", ev.Error)
		}
	case "login_result":
		if ev.Success != nil && *ev.Success {
			fmt.Printf("* logged in as %s, %d users online\n", ev.Info, len(ev.Users))
		} else {
			fmt.Printf("! login denied: %s\n", ev.Info)
		}
	}
}

func (c *chat) writeLoop(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if req, ok := c.parse(strings.TrimSpace(line)); ok {
				c.send(ctx, req)
			}
		}
	}
}

func (c *chat) parse(line string) (transporthttp.CommandRequest, bool) {
	if line == "" {
		return transporthttp.CommandRequest{}, false
	}
	if !strings.HasPrefix(line, "/") {
		return transporthttp.CommandRequest{Kind: "say", Channel: c.channel, Text: line}, true
	}

	fields := strings.Fields(line)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	switch fields[0] {
	case "/join":
		c.channel = arg(1)
		return transporthttp.CommandRequest{Kind: "join_channel", Channel: arg(1), Key: arg(2)}, true
	case "/leave":
		ch := arg(1)
		if ch == "" {
			ch = c.channel
		}
		return transporthttp.CommandRequest{Kind: "leave_channel", Channel: ch}, true
	case "/msg":
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "/msg"), " "+arg(1)))
		return transporthttp.CommandRequest{Kind: "open_private_chat", User: arg(1), Text: text}, true
	case "/away":
		return transporthttp.CommandRequest{Kind: "set_away", Away: true}, true
	case "/back":
		return transporthttp.CommandRequest{Kind: "set_away", Away: false}, true
	}
	fmt.Printf("! unknown command %s\n", fields[0])
	return transporthttp.CommandRequest{}, false
}
