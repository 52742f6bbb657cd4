package transport

import "github.com/Kobeeeef/XTABLES/internal/framing"

func writeFrame(c *conn, payload []byte) error {
	return framing.WriteFrame(c.nc, payload)
}
