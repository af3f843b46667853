package run

import (
	"errors"
	"time"

	"github.com/mark-e-deyoung/qperf/internal/metrics"
	"github.com/mark-e-deyoung/qperf/internal/netio"
)

// SendMesg writes one framed control message within the request timeout.
func (rt *Runtime) SendMesg(buf []byte, item string) error {
	rt.Debugf("sending %s", item)
	return rt.transfer(netio.Send, buf, "send", item)
}

// RecvMesg reads one framed control message within the request timeout.
func (rt *Runtime) RecvMesg(buf []byte, item string) error {
	rt.Debugf("waiting for %s", item)
	return rt.transfer(netio.Recv, buf, "receive", item)
}

func (rt *Runtime) transfer(dir netio.Dir, buf []byte, action, item string) error {
	deadline := time.Now().Add(time.Duration(rt.Req.Timeout) * time.Second)
	err := netio.Transfer(rt.Conn, dir, buf, deadline)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, netio.ErrTimeout):
		metrics.TransferErrors.WithLabelValues(metrics.ErrTimeout).Inc()
		return rt.Errorf("failed to %s %s: timed out", action, item)
	case errors.Is(err, netio.ErrPeerClosed):
		metrics.TransferErrors.WithLabelValues(metrics.ErrClosed).Inc()
		side := "client"
		if rt.IsClient() {
			side = "server"
		}
		return rt.Errorf("failed to %s %s: %s not responding", action, item, side)
	default:
		metrics.TransferErrors.WithLabelValues(metrics.ErrIO).Inc()
		return rt.Errorf("failed to %s %s: %v", action, item, err)
	}
}
