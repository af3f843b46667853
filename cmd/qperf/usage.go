package main

import (
	"fmt"

	"github.com/mark-e-deyoung/qperf/internal/proto"
)

func version() string { return proto.Version() }

// usage holds the help text by category.
var usage = map[string]string{
	"main": `Usage: qperf [options] [server-name [test ...]]

With no server name, qperf runs as the server and waits for test
invocations on the listen port (default 19765). With a server name and one
or more test names, it runs each test against that server and prints a
summary.

Common options:
    -h,  --help [category]     show help (categories: main, tests, opts, examples)
    -V,  --version             show the version and exit
    -H,  --host name           set the server name explicitly
    -lp, --listen_port n       control port to listen on or connect to
    -t,  --time T              test duration (default 2 seconds)
    -m,  --msg_size S          message size (suffixes: k/m/g decimal, K/M/G binary)
    -v, -vv                    verbose / more verbose output
    -u,  --unify_units         do not scale values onto unit ladders

Try "qperf --help tests" for the list of tests.
`,
	"tests": `Tests:
    conf       show the configuration of both nodes
    quit       ask the server to wind down the current exchange
    tcp_bw     TCP streaming one-way bandwidth
    tcp_lat    TCP round-trip latency
    udp_bw     UDP streaming one-way bandwidth
    udp_lat    UDP round-trip latency
    sdp_bw     SDP streaming one-way bandwidth
    sdp_lat    SDP round-trip latency
    rds_bw     RDS streaming one-way bandwidth
    rds_lat    RDS round-trip latency
`,
	"opts": `Options (most accept --loc_/--rem_ variants to set one side only):
    -a,  --affinity n          pin to logical CPU n (1 based)
    -Ar, --access_recv n       use IBV_ACCESS_REMOTE_WRITE on receives
    -D,  --debug               debug output and traces
    -e,  --precision n         significant digits to display (default 3)
    -f,  --flip n              reverse the direction of transfer
    -i,  --id s                identify the connection
    -m,  --msg_size S          message size
    -M,  --mtu_size S          MTU size
    -ma, --metrics_addr a      serve Prometheus metrics on a (server mode)
    -n,  --no_msgs n           run for a message count instead of a duration
    -p,  --port n              data port (default ephemeral)
    -P,  --poll n              poll instead of sleeping on completions
    -r,  --rate s              transfer rate
    -R,  --rd_atomic n         number of outstanding RDMA reads/atomics
    -S,  --sock_buf_size S     socket buffer sizes
    -st, --server_timeout T    server request timeout (default 5 seconds)
    -t,  --time T              test duration
    -T,  --timeout T           framed transfer timeout (default 5 seconds)
    -u,  --unify_units         do not scale values onto unit ladders
    -U,  --unify_nodes         label per-node output loc/rem, never send/recv
    -v{c,s,t,u}                per-category verbosity
    -v{C,S,T,U}                per-category verbosity, level 2
    -W,  --wait T              retry the connect for up to T seconds
`,
	"examples": `Examples:
    qperf                      run as the server
    qperf myserver tcp_bw      measure TCP bandwidth to myserver
    qperf myserver -t 10 -vv tcp_lat
                               measure TCP latency for ten seconds, verbosely
    qperf myserver -m 4K udp_bw udp_lat quit
                               run two UDP tests, then stop the exchange
`,
}

func init() {
	// The version line is part of the main help footer.
	usage["main"] += fmt.Sprintf("\nqperf %s\n", version())
}
