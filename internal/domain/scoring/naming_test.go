package scoring_test

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/domain/scoring"
)

func naming(t *testing.T, src string) int {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "a.go", src, 0)
	require.NoError(t, err)
	return scoring.NamingQuality(f)
}

func TestNamingQuality_CleanFile(t *testing.T) {
	src := `package p

type Account struct{}

func (a *Account) Deposit(n int)      {}
func (a *Account) String() string     { return "" }
func (a *Account) Len() int           { return 0 }
func NewAccount() *Account            { return nil }
func (a *Account) OnBalanceChanged()  {}
func TestAccount()                    {}
`
	// Deposit is not in the verb list.
	assert.Equal(t, 95, naming(t, src))
}

func TestNamingQuality_Offenses(t *testing.T) {
	src := `package p

type Obj struct{}
type UserManager struct{}

func (o *Obj) Do() {}
func Process()      {}
func (o *Obj) Thing() {}
`
	// Obj: short type (-5); UserManager: vague suffix (-5);
	// Do: short and not a verb (-10); Process: generic (-10); Thing: generic (-10).
	assert.Equal(t, 60, naming(t, src))
}

func TestNamingQuality_FloorsAtZero(t *testing.T) {
	src := "package p\n"
	for i := 0; i < 12; i++ {
		src += "func Data" + string(rune('A'+i)) + "x() {}\n"
	}
	src += "func Process() {}\nfunc Data() {}\nfunc Helper() {}\nfunc Util() {}\nfunc Stuff() {}\nfunc Temp() {}\n"
	src += "func Foo() {}\nfunc Bar() {}\nfunc Info() {}\nfunc Item() {}\nfunc Object() {}\n"
	assert.Equal(t, 0, naming(t, src))
}
