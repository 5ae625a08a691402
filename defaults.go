package exprgraph

// Names of the built-in operator handlers.
const (
	HandlerVal  = "val"
	HandlerVar  = "var"
	HandlerSum  = "sum"
	HandlerProd = "prod"
	HandlerPow  = "pow"
)

// Infix print precedences. Children with lower precedence than their parent
// are parenthesized.
const (
	precSum  = 1
	precProd = 2
	precPow  = 3
	precAtom = 10
)

// RegisterDefaults installs the built-in operator handlers: constants,
// variables, sums, products, powers, and the unary functions sin, cos,
// exp, log, and abs.
func RegisterDefaults(reg *Registry) error {
	for _, register := range []func(*Registry) error{
		registerValHandler,
		registerVarHandler,
		registerSumHandler,
		registerProdHandler,
		registerPowHandler,
		registerFuncHandlers,
	} {
		if err := register(reg); err != nil {
			return err
		}
	}
	return nil
}
