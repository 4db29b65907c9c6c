package keys

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestAddressShape(t *testing.T) {
	addr, err := GenerateAddress()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(addr, "0x") {
		t.Fatalf("address should start with 0x. Got %s", addr)
	}

	if len(addr) != 2+2*AddressLength {
		t.Fatalf("address should be %d characters. Got %d", 2+2*AddressLength, len(addr))
	}
}

func TestAddressDeterministic(t *testing.T) {
	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	a1 := Address(&key.PublicKey)
	a2 := Address(&key.PublicKey)

	if a1 != a2 {
		t.Fatalf("same key should derive same address. Got %s and %s", a1, a2)
	}
}

func TestAddressesDistinct(t *testing.T) {
	a1, err := GenerateAddress()
	if err != nil {
		t.Fatal(err)
	}

	a2, err := GenerateAddress()
	if err != nil {
		t.Fatal(err)
	}

	if a1 == a2 {
		t.Fatalf("two generated addresses collided: %s", a1)
	}
}

func TestParsePrivateKeyRoundTrip(t *testing.T) {
	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	dump := DumpPrivateKey(key)

	parsed, err := ParsePrivateKey(dump)
	if err != nil {
		t.Fatal(err)
	}

	if key.D.Cmp(parsed.D) != 0 {
		t.Fatal("parsed D value does not match original")
	}

	if !reflect.DeepEqual(FromPublicKey(&key.PublicKey), FromPublicKey(&parsed.PublicKey)) {
		t.Fatal("parsed public key does not match original")
	}
}

func TestSimpleKeyfile(t *testing.T) {
	dir, err := ioutil.TempDir("", "keys")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	keyfile := filepath.Join(dir, "priv_key")

	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	simpleKeyfile := NewSimpleKeyfile(keyfile)

	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatal(err)
	}

	read, err := simpleKeyfile.ReadKey()
	if err != nil {
		t.Fatal(err)
	}

	if Address(&key.PublicKey) != Address(&read.PublicKey) {
		t.Fatal("keyfile round-trip changed the derived address")
	}
}
