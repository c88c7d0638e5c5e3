package hash_test

import (
	"testing"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestNew(t *testing.T) {
	type table struct {
		name  string
		input []byte
		want  hash.Hash
	}

	tt := []table{
		{
			name:  "known vector",
			input: []byte("hello world"),
			want:  "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
		{
			name:  "empty input",
			input: nil,
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	t.Log("Given the need to validate digest computation.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen hashing %q.", testID, tst.input)
			{
				f := func(t *testing.T) {
					h := hash.New(tst.input)
					if h != tst.want {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, h)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.want)
						t.Fatalf("\t%s\tTest %d:\tShould produce the expected digest.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould produce the expected digest.", success, testID)

					if len(h) != 64 {
						t.Fatalf("\t%s\tTest %d:\tShould produce a 64 character digest, got %d.", failed, testID, len(h))
					}
					t.Logf("\t%s\tTest %d:\tShould produce a 64 character digest.", success, testID)

					if again := hash.New(tst.input); again != h {
						t.Fatalf("\t%s\tTest %d:\tShould be deterministic: %s != %s", failed, testID, again, h)
					}
					t.Logf("\t%s\tTest %d:\tShould be deterministic.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestToHash(t *testing.T) {
	t.Log("Given the need to validate digest parsing.")
	{
		t.Logf("\tTest 0:\tWhen parsing a well formed digest.")
		{
			want := hash.New([]byte("hello world"))

			h, err := hash.ToHash(string(want))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a computed digest: %v", failed, err)
			}
			if h != want {
				t.Fatalf("\t%s\tTest 0:\tShould round trip the digest, got %s.", failed, h)
			}
			t.Logf("\t%s\tTest 0:\tShould accept a computed digest.", success)
		}

		t.Logf("\tTest 1:\tWhen parsing malformed digests.")
		{
			if _, err := hash.ToHash("abc123"); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a short string.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a short string.", success)

			bad := "zz" + string(hash.Genesis())[2:]
			if _, err := hash.ToHash(bad); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject non hexadecimal characters.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject non hexadecimal characters.", success)
		}
	}
}

func TestGenesis(t *testing.T) {
	t.Log("Given the need to validate the reserved genesis digest.")
	{
		t.Logf("\tTest 0:\tWhen asking for the genesis sentinel.")
		{
			g := hash.Genesis()

			if len(g) != 64 {
				t.Fatalf("\t%s\tTest 0:\tShould be 64 characters long, got %d.", failed, len(g))
			}
			t.Logf("\t%s\tTest 0:\tShould be 64 characters long.", success)

			for i := 0; i < len(g); i++ {
				if g[i] != '0' {
					t.Fatalf("\t%s\tTest 0:\tShould be all zeros, found %q at %d.", failed, g[i], i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould be all zeros.", success)

			if !g.IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould report IsZero.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report IsZero.", success)

			if hash.New(nil).IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould never collide with a computed digest.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould never collide with a computed digest.", success)
		}
	}
}
