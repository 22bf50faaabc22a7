package node_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/keystore/mem"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/node"
)

func startNode(t *testing.T, operator identity.Identity, o node.Options) *node.Node {
	t.Helper()

	n, err := node.NewNode(operator, mem.New(), logging.New(io.Discard, 0), o)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func shutdown(t *testing.T, n *node.Node) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: got status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestNodeDevMode(t *testing.T) {
	operator, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	o := node.Options{
		DataDir:      t.TempDir(),
		APIAddr:      "127.0.0.1:0",
		DebugAPIAddr: "127.0.0.1:0",
		DevMode:      true,
		FaucetAmount: 1_000,
	}

	for i := 0; i < 2; i++ {
		n := startNode(t, operator, o)

		var wallet struct {
			Balance uint64 `json:"balance"`
		}
		getJSON(t, "http://"+n.APIAddr().String()+"/wallets/"+operator.String()+"/balance", &wallet)
		// the operator is funded on the first start only
		if wallet.Balance != 1_000 {
			t.Fatalf("start %d: got operator balance %d, want 1000", i, wallet.Balance)
		}

		var status struct {
			Status string `json:"status"`
		}
		getJSON(t, "http://"+n.DebugAPIAddr().String()+"/readiness", &status)
		if status.Status != "ok" {
			t.Fatalf("got status %q", status.Status)
		}

		shutdown(t, n)
	}
}

func TestNodeDisabledAPIs(t *testing.T) {
	operator, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	n := startNode(t, operator, node.Options{})
	if n.APIAddr() != nil || n.DebugAPIAddr() != nil {
		t.Fatalf("got api addresses %v %v", n.APIAddr(), n.DebugAPIAddr())
	}
	shutdown(t, n)
}

func TestNodeListenError(t *testing.T) {
	operator, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := node.NewNode(operator, mem.New(), logging.New(io.Discard, 0), node.Options{
		APIAddr: "invalid address",
	}); err == nil {
		t.Fatal("expected listener error")
	}
}
