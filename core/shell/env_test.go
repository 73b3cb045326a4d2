package shell

import "fmt"

func ExampleNewEnvFromList() {
	env := NewEnvFromList([]string{"A=B", "C=D", "E", "F=G=H"})

	fmt.Printf("Environ(): %q\n", env.Environ())
	fmt.Printf("Getenv(\"F\"): %q\n", env.Getenv("F"))

	// Output: Environ(): ["A=B" "C=D" "E=" "F=G=H"]
	// Getenv("F"): "G=H"
}

func ExampleEnv_Unsetenv() {
	env := NewEnv()
	env.Setenv("A", "B")
	env.Setenv("C", "D")

	fmt.Println("Before:", env.Environ())
	env.Unsetenv("A")
	fmt.Println("After:", env.Environ())

	// Output: Before: [A=B C=D]
	// After: [C=D]
}

func ExampleEnv_LookupEnv() {
	env := NewEnv()
	env.Setenv("A", "B")

	val, ok := env.LookupEnv("A")
	fmt.Println("Existing", "val:", val, "ok:", ok)
	val, ok = env.LookupEnv("B")
	fmt.Println("Missing", "val:", val, "ok:", ok)

	// Output: Existing val: B ok: true
	// Missing val:  ok: false
}

func ExampleEnv_SetArray() {
	env := NewEnv()
	env.SetArray("colors", []string{"red", "green", "blue"})

	values, ok := env.GetArray("colors")
	fmt.Println("values:", values, "ok:", ok)

	first, ok := env.ArrayElement("colors", 0)
	fmt.Println("first:", first, "ok:", ok)

	_, ok = env.ArrayElement("colors", 9)
	fmt.Println("out of range ok:", ok)

	// Output: values: [red green blue] ok: true
	// first: red ok: true
	// out of range ok: false
}

func ExampleEnv_SetArrayElement() {
	env := NewEnv()
	env.SetArrayElement("sparse", 2, "x")

	values, _ := env.GetArray("sparse")
	fmt.Printf("%q\n", values)

	// Output: ["" "" "x"]
}

func ExampleEnv_GetArray_scalarFallback() {
	env := NewEnv()
	env.Setenv("single", "only")

	values, ok := env.GetArray("single")
	fmt.Println("values:", values, "ok:", ok)

	// Output: values: [only] ok: true
}

func ExampleEnv_SetAssocElement() {
	env := NewEnv()
	env.SetAssocElement("capitals", "france", "paris")
	env.SetAssocElement("capitals", "japan", "tokyo")

	value, ok := env.AssocElement("capitals", "japan")
	fmt.Println("japan:", value, "ok:", ok)
	fmt.Println("keys:", env.AssocKeys("capitals"))

	// Output: japan: tokyo ok: true
	// keys: [france japan]
}
