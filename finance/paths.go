package finance

import "github.com/warp/billing-engine/store"

// Store layout, all namespaced under the session user:
//
//	users/{uid}/cards/config/{cardID}
//	users/{uid}/expenses/{yyyy-mm}/{id}
//	users/{uid}/fixed/{yyyy-mm}/{id}
//	users/{uid}/installments/{purchaseID}
//	users/{uid}/installments/markers/{yyyy-mm}/{purchaseID}:{number}
//	users/{uid}/pending/{yyyy-mm}/{id}          (legacy, read + delete only)
//	users/{uid}/balance
//	users/{uid}/income/{yyyy-mm}/{id}
//	users/{uid}/investments/{id}
//
// "markers" is a reserved child of installments; the adapter skips it when
// decoding purchase masters.

const markersKey = "markers"

func (s *Service) userPath(parts ...string) string {
	return store.Join(append([]string{"users", s.user}, parts...)...)
}

func (s *Service) cardsPath() string          { return s.userPath("cards", "config") }
func (s *Service) cardPath(id string) string  { return s.userPath("cards", "config", id) }
func (s *Service) balancePath() string        { return s.userPath("balance") }
func (s *Service) expensesPath() string       { return s.userPath("expenses") }
func (s *Service) expenseMonth(k string) string {
	return s.userPath("expenses", k)
}
func (s *Service) fixedPath() string            { return s.userPath("fixed") }
func (s *Service) fixedMonth(k string) string   { return s.userPath("fixed", k) }
func (s *Service) installmentsPath() string     { return s.userPath("installments") }
func (s *Service) purchasePath(id string) string {
	return s.userPath("installments", id)
}
func (s *Service) markersMonth(k string) string {
	return s.userPath("installments", markersKey, k)
}
func (s *Service) pendingPath() string          { return s.userPath("pending") }
func (s *Service) pendingMonth(k string) string { return s.userPath("pending", k) }
func (s *Service) incomePath() string           { return s.userPath("income") }
func (s *Service) incomeMonth(k string) string  { return s.userPath("income", k) }
func (s *Service) investmentsPath() string      { return s.userPath("investments") }
