package catalog

import "testing"

func TestTemplateLoader_LoadsFullTree(t *testing.T) {
	loader, err := NewTemplateLoader()
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	cat, err := loader.LoadCatalog("user-1")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(cat.Topics) == 0 {
		t.Fatal("catalog has no topics")
	}
	for topicName, topic := range cat.Topics {
		if len(topic.Subskills) == 0 {
			t.Fatalf("topic %q has no subskills", topicName)
		}
		for subName, sub := range topic.Subskills {
			if len(sub.Structures) == 0 {
				t.Fatalf("subskill %q/%q has no structures", topicName, subName)
			}
		}
	}
}

func TestCatalog_Contains(t *testing.T) {
	loader, err := NewTemplateLoader()
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	cat, _ := loader.LoadCatalog("user-1")

	if !cat.Contains("algebra", "linear_equations_in_one_variable", "isolate_the_variable") {
		t.Fatal("known path not found")
	}
	if cat.Contains("algebra", "linear_equations_in_one_variable", "nope") {
		t.Fatal("unknown structure reported present")
	}
	if cat.Contains("nope", "x", "y") {
		t.Fatal("unknown topic reported present")
	}
	var nilCat *Catalog
	if nilCat.Contains("a", "b", "c") {
		t.Fatal("nil catalog reported present")
	}
}

func TestCatalog_TopicNamesSorted(t *testing.T) {
	loader, err := NewTemplateLoader()
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	cat, _ := loader.LoadCatalog("user-1")
	names := cat.TopicNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("topic names not sorted: %v", names)
		}
	}
}
