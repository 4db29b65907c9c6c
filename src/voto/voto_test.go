package voto

import (
	"os"
	"testing"

	"github.com/leandrolasalle/voto-apresentacao/src/common"
	"github.com/leandrolasalle/voto-apresentacao/src/config"
	"github.com/leandrolasalle/voto-apresentacao/src/node"
	"github.com/leandrolasalle/voto-apresentacao/src/vote"
)

func newTestEngine(t *testing.T, storeType bool, dir string) *Voto {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.ServiceAddr = "" // no HTTP in these tests
	conf.Store = storeType
	if dir != "" {
		conf.DatabaseDir = dir
	}

	engine := NewVoto(conf)
	if err := engine.Init(); err != nil {
		t.Fatal(err)
	}
	go engine.Run()
	return engine
}

func castVote(t *testing.T, engine *Voto, voterID string, candidateID int) *vote.Transaction {
	if err := engine.Node.Identify(voterID); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Node.Connect(); err != nil {
		t.Fatal(err)
	}
	p, err := engine.Node.SubmitVote(candidateID)
	if err != nil {
		t.Fatal(err)
	}
	resp := <-p.RespCh
	if resp.Err != nil {
		t.Fatal(resp.Err)
	}
	return resp.Tx
}

func TestEngineInmem(t *testing.T) {
	engine := newTestEngine(t, false, "")
	defer engine.Shutdown()

	if engine.Gateway != nil {
		t.Fatal("expected offline engine without a database url")
	}

	castVote(t, engine, "12345678900", 3)

	if engine.Node.GetState() != node.Completed {
		t.Fatalf("expected Completed, got %s", engine.Node.GetState())
	}
	if engine.Store.Candidates().Get(3).Votes != 1 {
		t.Fatal("vote not applied to the store")
	}
}

func TestEngineBadgerSurvivesRestart(t *testing.T) {
	dir, err := os.MkdirTemp("", "voto_engine")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	engine := newTestEngine(t, true, dir)
	tx := castVote(t, engine, "98765432100", 1)
	engine.Shutdown()

	reopened := newTestEngine(t, true, dir)
	defer reopened.Shutdown()

	if !reopened.Store.Transactions().ContainsHash(tx.Hash) {
		t.Fatal("ledger entry lost across restart")
	}
	if reopened.Store.Candidates().Get(1).Votes != 1 {
		t.Fatal("candidate count lost across restart")
	}
	if !reopened.Store.HasVoter("98765432100") {
		t.Fatal("voter registry lost across restart")
	}
}
