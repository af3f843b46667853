// Package tests implements the transport test bodies and the ordered
// registry that maps names to them. The registry index is the test selector
// sent on the wire, so the order here is part of the protocol.
package tests

import "github.com/mark-e-deyoung/qperf/internal/run"

// Registry lists every test in wire order. Verbs-based tests only exist in
// builds with an RDMA backend, which this one does not carry.
var Registry = []run.Test{
	{Name: "conf", Client: clientConf, Server: serverConf},
	{Name: "quit", Client: clientQuit, Server: serverQuit},
	{Name: "rds_bw", Client: clientRDSBW, Server: serverRDSBW},
	{Name: "rds_lat", Client: clientRDSLat, Server: serverRDSLat},
	{Name: "sdp_bw", Client: clientSDPBW, Server: serverSDPBW},
	{Name: "sdp_lat", Client: clientSDPLat, Server: serverSDPLat},
	{Name: "tcp_bw", Client: clientTCPBW, Server: serverTCPBW},
	{Name: "tcp_lat", Client: clientTCPLat, Server: serverTCPLat},
	{Name: "udp_bw", Client: clientUDPBW, Server: serverUDPBW},
	{Name: "udp_lat", Client: clientUDPLat, Server: serverUDPLat},
}

func init() {
	for i := range Registry {
		Registry[i].Index = uint16(i)
	}
}

// Find returns the test with the given name, or nil.
func Find(name string) *run.Test {
	for i := range Registry {
		if Registry[i].Name == name {
			return &Registry[i]
		}
	}
	return nil
}
