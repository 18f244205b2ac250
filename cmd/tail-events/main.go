// tail-events follows the server's TCP event feed and prints each event,
// reconnecting when the server goes away. Handy for watching a crawl land.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

func main() {
	def := "127.0.0.1:7070"
	if v := os.Getenv("NOVELHUB_EVENT_ADDR"); v != "" {
		if v[0] == ':' {
			v = "127.0.0.1" + v
		}
		def = v
	}
	addr := flag.String("addr", def, "event feed address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	for {
		if err := follow(*addr, *pretty); err != nil {
			log.Printf("[tail-events] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second)
	}
}

func follow(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[tail-events] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		if !pretty {
			fmt.Println(string(line))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}

		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
