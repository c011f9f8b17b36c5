package events

import (
	"bufio"
	"encoding/json"
	"log"
	"net"
	"time"
)

// FeedServer serves the global TCP firehose: every published event as
// one JSON line, all pairs interleaved.
type FeedServer struct {
	Addr string
	Hub  *Hub

	ln net.Listener
}

func NewFeedServer(addr string, hub *Hub) *FeedServer {
	return &FeedServer{Addr: addr, Hub: hub}
}

func (s *FeedServer) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Printf("[events-feed] listening on %s", s.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		s.Hub.AddTCP(conn)
		s.welcome(conn)
		log.Printf("[events-feed] client connected: %s", conn.RemoteAddr())

		go func(c net.Conn) {
			defer func() {
				s.Hub.RemoveTCP(c)
				log.Printf("[events-feed] client disconnected: %s", c.RemoteAddr())
			}()

			// Listeners only; consume and drop anything sent to us.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

func (s *FeedServer) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *FeedServer) welcome(conn net.Conn) {
	b, err := json.Marshal(map[string]any{
		"type": "welcome",
		"at":   time.Now().UTC(),
	})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, _ = conn.Write(append(b, '\n'))
}
