// Package migrate upgrades a project's city document to the schema of its
// installed core.
//
// A core ships numbered migrations, "4.js" moving a city from core version
// 3 to 4. Resolve picks the ones a project needs and Runner applies them in
// order after backing up the city file. Script migrations run in an
// embedded JavaScript runtime; Go migrations can be added through a
// Registry.
package migrate
